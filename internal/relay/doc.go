// Package relay fans submitted messages out to every open subscriber connection.
//
// A single goroutine owns the subscriber registry and processes commands from a
// channel (register, unregister, submit, count, stop), so the registry needs no
// mutex. Each subscriber has its own writer goroutine with a bounded queue: the
// run loop only enqueues, it never blocks on a slow connection.
package relay
