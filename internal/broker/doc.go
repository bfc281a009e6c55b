// Package broker is the at-least-once message transport between pipeline
// stages, stored in its own SQLite database so any number of worker processes
// on the host can share it.
//
// Receive leases one message for the visibility timeout under a random lease
// token. The holder must Ack (delete), Nack (release after the retry delay) or
// ExtendLease before the lease runs out; an expired lease makes the message
// visible again. A message that has been delivered max_deliveries times and
// comes up again is marked dead instead of being delivered, and stays in the
// table for inspection.
package broker
