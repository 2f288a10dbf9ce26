package domain

// Item kinds returned by the file service.
const (
	ItemFolder = "folder"
	ItemFile   = "file"
)

// FolderItem is one entry of a folder listing.
type FolderItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (i FolderItem) IsFolder() bool { return i.Type == ItemFolder }

type FolderContent struct {
	Content []FolderItem `json:"content"`
}

type FileContent struct {
	Content string `json:"content"`
}

// SaveFileRequest is the body of POST /save-file/.
type SaveFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileActionRequest is the body of POST /file-action.
type FileActionRequest struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// FileChange is pushed on the folder update stream when the agent touches
// the workspace.
type FileChange struct {
	Type       string `json:"type"`
	ChangeType string `json:"change_type"`
	File       string `json:"file"`
}

const (
	FileChangeEvent = "file_change"
	FileAdded       = "file_added"
	FileDeleted     = "file_deleted"
)

// AffectsListing reports whether the change adds or removes an entry.
func (c FileChange) AffectsListing() bool {
	return c.Type == FileChangeEvent && (c.ChangeType == FileAdded || c.ChangeType == FileDeleted)
}
