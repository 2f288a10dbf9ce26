// Package session runs one chat client session: the subscriber connection
// with its reconnect loop, dispatch of inbound frames into the transcript and
// action log, user submissions, and the idle "no response" timer.
//
// All session state is owned by a single goroutine fed through an event
// channel. Dial results, reads, timers and submissions run elsewhere and
// report back as events tagged with the connection generation they belong to,
// so late events from a torn-down connection are dropped.
package session
