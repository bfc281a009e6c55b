// Package pipeline drives summary jobs through their status machine.
//
// Submit validates a request, records the job at validating_isbn and
// publishes the fetch message. HandleFetch and HandleGenerate are the two
// stage handlers invoked by the workflow runner for each delivery. Both check
// the job's current status before doing any work, so a redelivered message
// for a job that already moved on is a stale no-op rather than a second
// aggregation or a second generate message.
//
// Only two outcomes move a job to failed: no provider returned material, or
// the generation backend failed. Store and broker errors are returned wrapped
// with services.ErrTransient and must cause the delivery to be retried.
package pipeline
