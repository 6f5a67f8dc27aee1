package internal

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Catalog holds the session and folder lists. Every mutation is one
// remote call followed by a full refetch; lists are never patched locally.
type Catalog struct {
	svc CatalogService

	mu       sync.RWMutex
	sessions []SessionSummary
	folders  []Folder
}

// NewCatalog creates an empty catalog backed by svc
func NewCatalog(svc CatalogService) *Catalog {
	return &Catalog{svc: svc}
}

// Sessions returns the last fetched session list
func (c *Catalog) Sessions() []SessionSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]SessionSummary(nil), c.sessions...)
}

// Folders returns the last fetched folder list
func (c *Catalog) Folders() []Folder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Folder(nil), c.folders...)
}

// Find returns the summary for id from the last fetch
func (c *Catalog) Find(id string) (SessionSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return SessionSummary{}, false
}

// FolderName resolves a folder id to its name
func (c *Catalog) FolderName(id *string) string {
	if id == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.folders {
		if f.ID == *id {
			return f.Name
		}
	}
	return ""
}

// Refresh fetches sessions and folders concurrently
func (c *Catalog) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.RefreshSessions(gctx) })
	g.Go(func() error { return c.RefreshFolders(gctx) })
	return g.Wait()
}

// RefreshSessions replaces the session list
func (c *Catalog) RefreshSessions(ctx context.Context) error {
	list, err := c.svc.ListSessions(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessions = list
	c.mu.Unlock()
	return nil
}

// RefreshFolders replaces the folder list
func (c *Catalog) RefreshFolders(ctx context.Context) error {
	list, err := c.svc.ListFolders(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.folders = list
	c.mu.Unlock()
	return nil
}

// afterMutation refetches regardless of the mutation outcome. The
// mutation error wins over a refetch error.
func (c *Catalog) afterMutation(ctx context.Context, err error, refetch func(context.Context) error) error {
	if rerr := refetch(ctx); rerr != nil {
		LogWarn("Catalog refresh failed: %v", rerr)
		if err == nil {
			return rerr
		}
	}
	return err
}

// DeleteSession removes a session on the server
func (c *Catalog) DeleteSession(ctx context.Context, id string) error {
	err := c.svc.DeleteSession(ctx, id)
	return c.afterMutation(ctx, err, c.RefreshSessions)
}

// RenameSession sets a session title
func (c *Catalog) RenameSession(ctx context.Context, id, title string) error {
	_, err := c.svc.PatchSession(ctx, id, SessionPatch{Title: &title})
	return c.afterMutation(ctx, err, c.RefreshSessions)
}

// SetPinned pins or unpins a session
func (c *Catalog) SetPinned(ctx context.Context, id string, pinned bool) error {
	_, err := c.svc.PatchSession(ctx, id, SessionPatch{IsPinned: &pinned})
	return c.afterMutation(ctx, err, c.RefreshSessions)
}

// TogglePin flips the pin state recorded in the last fetched list
func (c *Catalog) TogglePin(ctx context.Context, id string) error {
	current, ok := c.Find(id)
	if !ok {
		if err := c.RefreshSessions(ctx); err != nil {
			return err
		}
		if current, ok = c.Find(id); !ok {
			return &DomainError{Op: "toggle-pin", Message: "Session not found"}
		}
	}
	return c.SetPinned(ctx, id, !current.IsPinned)
}

// MoveToFolder files a session under folderID; an empty folderID detaches it
func (c *Catalog) MoveToFolder(ctx context.Context, id, folderID string) error {
	patch := SessionPatch{DetachFolder: folderID == ""}
	if folderID != "" {
		patch.FolderID = &folderID
	}
	_, err := c.svc.PatchSession(ctx, id, patch)
	return c.afterMutation(ctx, err, c.RefreshSessions)
}

// Share makes a session publicly viewable
func (c *Catalog) Share(ctx context.Context, id string) (*ShareInfo, error) {
	info, err := c.svc.ShareSession(ctx, id)
	return info, c.afterMutation(ctx, err, c.RefreshSessions)
}

// Unshare revokes a session's share token
func (c *Catalog) Unshare(ctx context.Context, id string) error {
	err := c.svc.UnshareSession(ctx, id)
	return c.afterMutation(ctx, err, c.RefreshSessions)
}

// ShareInfo reports a session's share state without changing it
func (c *Catalog) ShareInfo(ctx context.Context, id string) (*ShareInfo, error) {
	return c.svc.GetShareInfo(ctx, id)
}

// Branch copies a session, optionally truncated after fromRound
func (c *Catalog) Branch(ctx context.Context, id string, fromRound *int) (*Session, error) {
	s, err := c.svc.BranchSession(ctx, id, fromRound)
	return s, c.afterMutation(ctx, err, c.RefreshSessions)
}

// CreateFolder adds a folder
func (c *Catalog) CreateFolder(ctx context.Context, name, color string) (*Folder, error) {
	if name == "" {
		return nil, &ValidationError{Op: "create-folder", Message: "folder name is required"}
	}
	f, err := c.svc.CreateFolder(ctx, name, color)
	return f, c.afterMutation(ctx, err, c.RefreshFolders)
}

// UpdateFolder renames, recolors or repositions a folder
func (c *Catalog) UpdateFolder(ctx context.Context, id string, patch FolderPatch) error {
	_, err := c.svc.UpdateFolder(ctx, id, patch)
	return c.afterMutation(ctx, err, c.RefreshFolders)
}

// DeleteFolder removes a folder. The server detaches its sessions, so
// both lists are refetched.
func (c *Catalog) DeleteFolder(ctx context.Context, id string) error {
	err := c.svc.DeleteFolder(ctx, id)
	return c.afterMutation(ctx, err, c.Refresh)
}

// ResolveFolder finds a folder by id or, failing that, by exact name
func (c *Catalog) ResolveFolder(ref string) (Folder, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.folders {
		if f.ID == ref {
			return f, nil
		}
	}
	for _, f := range c.folders {
		if f.Name == ref {
			return f, nil
		}
	}
	return Folder{}, errors.New("folder not found: " + ref)
}
