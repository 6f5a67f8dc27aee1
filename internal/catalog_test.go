package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, *FakeService) {
	t.Helper()
	fake := NewFakeService()
	fake.Put(CreateTestSession("s1"))
	fake.Put(CreateTestChatSession("s2", 2))
	fake.PutFolder(Folder{ID: "f1", Name: "Work", Position: 1})
	fake.PutFolder(Folder{ID: "f0", Name: "Home", Position: 0})
	c := NewCatalog(fake)
	require.NoError(t, c.Refresh(context.Background()))
	return c, fake
}

func TestCatalog_Refresh(t *testing.T) {
	c, _ := newTestCatalog(t)

	assert.Len(t, c.Sessions(), 2)
	folders := c.Folders()
	require.Len(t, folders, 2)
	assert.Equal(t, "Home", folders[0].Name, "folders ordered by position")
}

func TestCatalog_MutationsRefetch(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ctx context.Context, c *Catalog) error
		op      string
		refetch string
	}{
		{"rename", func(ctx context.Context, c *Catalog) error { return c.RenameSession(ctx, "s1", "New") }, "patch-session", "list-sessions"},
		{"pin", func(ctx context.Context, c *Catalog) error { return c.SetPinned(ctx, "s1", true) }, "patch-session", "list-sessions"},
		{"move", func(ctx context.Context, c *Catalog) error { return c.MoveToFolder(ctx, "s1", "f1") }, "patch-session", "list-sessions"},
		{"delete", func(ctx context.Context, c *Catalog) error { return c.DeleteSession(ctx, "s2") }, "delete-session", "list-sessions"},
		{"share", func(ctx context.Context, c *Catalog) error { _, err := c.Share(ctx, "s1"); return err }, "share-session", "list-sessions"},
		{"unshare", func(ctx context.Context, c *Catalog) error { return c.Unshare(ctx, "s1") }, "unshare-session", "list-sessions"},
		{"branch", func(ctx context.Context, c *Catalog) error { _, err := c.Branch(ctx, "s1", nil); return err }, "branch-session", "list-sessions"},
		{"create folder", func(ctx context.Context, c *Catalog) error { _, err := c.CreateFolder(ctx, "New", ""); return err }, "create-folder", "list-folders"},
		{"rename folder", func(ctx context.Context, c *Catalog) error {
			name := "Renamed"
			return c.UpdateFolder(ctx, "f1", FolderPatch{Name: &name})
		}, "update-folder", "list-folders"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestCatalog(t)
			before := len(fake.Calls())

			require.NoError(t, tt.mutate(context.Background(), c))

			calls := fake.Calls()[before:]
			assert.Equal(t, []string{tt.op, tt.refetch}, calls)
		})
	}
}

func TestCatalog_RefetchEvenOnFailure(t *testing.T) {
	c, fake := newTestCatalog(t)
	fake.FailOp("patch-session", &DomainError{Op: "patch-session", Message: "read only"})
	before := len(fake.Calls())

	err := c.RenameSession(context.Background(), "s1", "x")

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"patch-session", "list-sessions"}, fake.Calls()[before:])
}

func TestCatalog_RefetchErrorSurfaces(t *testing.T) {
	c, fake := newTestCatalog(t)
	refreshErr := errors.New("list down")
	fake.FailOp("list-sessions", refreshErr)

	err := c.SetPinned(context.Background(), "s1", true)
	assert.ErrorIs(t, err, refreshErr)
}

func TestCatalog_TogglePin(t *testing.T) {
	c, fake := newTestCatalog(t)

	require.NoError(t, c.TogglePin(context.Background(), "s1"))
	s, _ := c.Find("s1")
	assert.True(t, s.IsPinned)
	assert.Equal(t, "s1", c.Sessions()[0].ID, "pinned sessions listed first")

	require.NoError(t, c.TogglePin(context.Background(), "s1"))
	s, _ = c.Find("s1")
	assert.False(t, s.IsPinned)
	assert.False(t, fake.Stored("s1").IsPinned)

	assert.Error(t, c.TogglePin(context.Background(), "missing"))
}

func TestCatalog_MoveAndDetach(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.MoveToFolder(ctx, "s1", "f1"))
	s, _ := c.Find("s1")
	require.NotNil(t, s.FolderID)
	assert.Equal(t, "Work", c.FolderName(s.FolderID))

	require.NoError(t, c.MoveToFolder(ctx, "s1", ""))
	s, _ = c.Find("s1")
	assert.Nil(t, s.FolderID)
}

func TestCatalog_DeleteFolderDetachesSessions(t *testing.T) {
	c, fake := newTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.MoveToFolder(ctx, "s1", "f1"))

	before := len(fake.Calls())
	require.NoError(t, c.DeleteFolder(ctx, "f1"))

	calls := fake.Calls()[before:]
	assert.Equal(t, "delete-folder", calls[0])
	assert.ElementsMatch(t, []string{"list-sessions", "list-folders"}, calls[1:])

	s, _ := c.Find("s1")
	assert.Nil(t, s.FolderID)
	assert.Len(t, c.Folders(), 1)
}

func TestCatalog_CreateFolderRequiresName(t *testing.T) {
	c, fake := newTestCatalog(t)
	before := len(fake.Calls())
	_, err := c.CreateFolder(context.Background(), "", "")
	assert.True(t, IsValidation(err))
	assert.Len(t, fake.Calls(), before)
}

func TestCatalog_ResolveFolder(t *testing.T) {
	c, _ := newTestCatalog(t)

	f, err := c.ResolveFolder("Work")
	require.NoError(t, err)
	assert.Equal(t, "f1", f.ID)

	f, err = c.ResolveFolder("f0")
	require.NoError(t, err)
	assert.Equal(t, "Home", f.Name)

	_, err = c.ResolveFolder("Nope")
	assert.Error(t, err)
}

func TestCatalog_ShareInfo(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	info, err := c.Share(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, info.IsShared)

	got, err := c.ShareInfo(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, info.ShareToken, got.ShareToken)

	require.NoError(t, c.Unshare(ctx, "s1"))
	got, err = c.ShareInfo(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.IsShared)
}
