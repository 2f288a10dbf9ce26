// Package files is the workspace folder view: navigation relative to a
// configured workspace root, backed by the chat backend's file service.
package files

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

// Parent is the pseudo entry that navigates one level up.
const Parent = ".."

var ErrInvalidName = errors.New("invalid entry name")

// Browser tracks the current folder. Service calls happen outside the lock.
type Browser struct {
	root    string
	service domain.FileService

	mu      sync.Mutex
	current string
}

// NewBrowser returns a browser positioned at the workspace root.
func NewBrowser(root string, service domain.FileService) *Browser {
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return &Browser{root: root, service: service}
}

// Current is the folder relative to the root: "" for the root itself,
// otherwise slash-terminated.
func (b *Browser) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Breadcrumbs lists the folder names from the root down to the current folder.
func (b *Browser) Breadcrumbs() []string {
	return splitPath(b.Current())
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// FullPath is the absolute path the file service expects for name inside the
// current folder. An empty name denotes the current folder itself.
func (b *Browser) FullPath(name string) string {
	return b.root + b.Current() + name
}

// Enter descends into name, or goes up one level for Parent.
func (b *Browser) Enter(name string) error {
	if name == Parent {
		b.Up()
		return nil
	}
	if err := validateName(name); err != nil {
		return err
	}
	b.mu.Lock()
	b.current += name + "/"
	b.mu.Unlock()
	return nil
}

// Up moves to the parent folder. At the root it stays put.
func (b *Browser) Up() {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := splitPath(b.current)
	if len(parts) <= 1 {
		b.current = ""
		return
	}
	b.current = strings.Join(parts[:len(parts)-1], "/") + "/"
}

// List returns the entries of the current folder. Outside the root a Parent
// folder entry is prepended.
func (b *Browser) List(ctx context.Context) ([]domain.FolderItem, error) {
	current := b.Current()
	path := b.root + current
	items, err := b.service.FolderContent(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", path, err)
	}
	if current == "" {
		return items, nil
	}
	return append([]domain.FolderItem{{Name: Parent, Type: domain.ItemFolder}}, items...), nil
}

func (b *Browser) Read(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	content, err := b.service.FileContent(ctx, b.FullPath(name))
	if err != nil {
		return "", fmt.Errorf("read %q: %w", name, err)
	}
	return content, nil
}

func (b *Browser) Save(ctx context.Context, name, content string) error {
	if err := validateName(name); err != nil {
		return err
	}
	req := domain.SaveFileRequest{Path: b.FullPath(name), Content: content}
	if err := b.service.SaveFile(ctx, req); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	return nil
}

// Act asks the file service to perform action (e.g. "delete") on item.
func (b *Browser) Act(ctx context.Context, action string, item domain.FolderItem, userID string) error {
	if err := validateName(item.Name); err != nil {
		return err
	}
	req := domain.FileActionRequest{
		Action: action,
		Path:   b.FullPath(item.Name),
		Type:   item.Type,
		UserID: userID,
	}
	if err := b.service.FileAction(ctx, req); err != nil {
		return fmt.Errorf("%s %q: %w", action, item.Name, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == Parent || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
