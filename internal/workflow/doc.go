// Package workflow runs the pipeline's stage consumers.
//
// The Manager owns one lane per registered stage and topic, with the
// configured number of workers per lane. Each worker leases one broker
// message at a time, keeps the lease alive with a heartbeat loop while the
// stage handler runs, and then settles the delivery: business outcomes are
// acknowledged, infrastructure failures are released with Nack so the message
// is redelivered after the retry delay.
//
// Add new stages by implementing Stage and registering it in cmd/booksumd;
// status transitions belong in the pipeline package, not here.
package workflow
