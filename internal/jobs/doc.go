// Package jobs persists summary jobs and their aggregated documents in SQLite
// and owns the job status state machine.
//
// A job moves validating_isbn → collecting_data → data_collected →
// generating_summary → completed, and may move to failed from any
// non-terminal status. Store.Transition applies each move as one conditional
// UPDATE keyed on the allowed predecessor statuses, so two workers racing on
// the same job serialize in the database and the loser gets a
// *TransitionError rather than a silently overwritten row.
//
// Documents are keyed by job id and upserted, which keeps redelivered fetch
// messages idempotent. Schema changes are added as new files under
// migrations/ and applied in lexical order on Open.
package jobs
