// Package main hosts the booksum operator CLI.
//
// Commands talk to the job store and broker directly: submit publishes a
// fetch message that a running booksumd picks up, while status, jobs, and
// export read the store. The similarity command needs no configuration and is
// handy for checking how the aggregator will score a set of source texts.
package main
