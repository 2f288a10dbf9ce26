package domain

import "context"

// SubscriberConn is the client end of a subscriber connection.
type SubscriberConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// SubscriberDialer opens subscriber connections.
type SubscriberDialer interface {
	Dial(ctx context.Context, url string) (SubscriberConn, error)
}

// ChatBackend accepts user messages on behalf of the agent system.
type ChatBackend interface {
	SubmitChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// FileService is the workspace file capability of the chat backend.
type FileService interface {
	FolderContent(ctx context.Context, path string) ([]FolderItem, error)
	FileContent(ctx context.Context, path string) (string, error)
	SaveFile(ctx context.Context, req SaveFileRequest) error
	FileAction(ctx context.Context, req FileActionRequest) error
}
