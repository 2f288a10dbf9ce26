// Package domain defines the types shared by the relay, the chat session and
// the terminal client: decoded frames, transcript entries and the wire
// shapes of the HTTP collaborators.
//
// Frames are decoded exactly once, at the subscriber connection boundary, into
// the Frame sum type. Consumers switch on the concrete variant instead of
// probing the raw payload again.
package domain
