package broker

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topics carried by the broker.
const (
	TopicFetch    = "fetch"
	TopicGenerate = "generate"
)

// FetchRequest asks the fetch stage to aggregate sources for a job.
type FetchRequest struct {
	ID       int64  `json:"id"`
	ISBN     string `json:"isbn"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// GenerateRequest asks the generate stage to summarize a job's document.
type GenerateRequest struct {
	ID       int64  `json:"id"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// Message is one leased delivery.
type Message struct {
	ID          int64
	Topic       string
	Payload     []byte
	Attempts    int
	LeaseToken  string
	LeasedUntil time.Time
	CreatedAt   time.Time
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s message %d: %w", m.Topic, m.ID, err)
	}
	return nil
}

// TopicStats summarizes one topic's backlog.
type TopicStats struct {
	Ready  int `json:"ready"`
	Leased int `json:"leased"`
	Dead   int `json:"dead"`
}
