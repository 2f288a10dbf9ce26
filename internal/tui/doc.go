// Package tui is the terminal front end of a chat session: the transcript,
// a typing indicator while a reply is pending, the agent action panel and
// the workspace folder view. Slash commands drive everything that is not a
// chat message.
package tui
