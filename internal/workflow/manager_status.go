package workflow

// LaneStatus summarizes one lane.
type LaneStatus struct {
	Name      string `json:"name"`
	Topic     string `json:"topic"`
	Workers   int    `json:"workers"`
	Busy      int64  `json:"busy"`
	Processed int64  `json:"processed"`
	Retried   int64  `json:"retried"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool         `json:"running"`
	LastError string       `json:"last_error,omitempty"`
	Lanes     []LaneStatus `json:"lanes"`
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	for _, lane := range m.lanes {
		summary.Lanes = append(summary.Lanes, LaneStatus{
			Name:      lane.name,
			Topic:     lane.topic,
			Workers:   lane.workers,
			Busy:      lane.busy.Load(),
			Processed: lane.processed.Load(),
			Retried:   lane.retried.Load(),
		})
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
