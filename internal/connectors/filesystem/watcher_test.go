package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfOnly(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func waitChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-changes:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
		return Change{}
	}
}

func TestWatcher_Scan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt", ".hidden.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0755))

	paths, err := New(dir, WithFilter(pdfOnly)).Scan()

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.PDF"), filepath.Join(dir, "b.pdf")}, paths)
}

func TestWatcher_Scan_MissingDir(t *testing.T) {
	_, err := New("/non/existent/path").Scan()
	assert.Error(t, err)
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("reports a new file once it settles", func(t *testing.T) {
		dir := t.TempDir()
		w := New(dir, WithFilter(pdfOnly), WithSettle(50*time.Millisecond))
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(dir, "new.pdf")
		require.NoError(t, os.WriteFile(path, []byte("part one"), 0644))
		require.NoError(t, os.WriteFile(path, []byte("part one and two"), 0644))

		change := waitChange(t, changes)
		assert.Equal(t, Change{Type: ChangeCreated, Path: path}, change)
	})

	t.Run("ignores filtered and hidden files", func(t *testing.T) {
		dir := t.TempDir()
		w := New(dir, WithFilter(pdfOnly), WithSettle(20*time.Millisecond))
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp.pdf"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "real.pdf"), []byte("x"), 0644))

		change := waitChange(t, changes)
		assert.Equal(t, filepath.Join(dir, "real.pdf"), change.Path)
	})

	t.Run("detects deletions", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "gone.pdf")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		w := New(dir, WithSettle(20*time.Millisecond))
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))

		change := waitChange(t, changes)
		assert.Equal(t, Change{Type: ChangeDeleted, Path: path}, change)
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		changes, err := New("/non/existent/path").Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		w := New(t.TempDir())
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error when closed", func(t *testing.T) {
		w := New(t.TempDir())
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		changes, err := w.Watch(context.Background())

		assert.ErrorIs(t, err, ErrClosed)
		assert.Nil(t, changes)
	})
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	sub := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(sub, 0755))

	w := New(dir, WithFilter(pdfOnly))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want *Change
	}{
		{"create", file, fsnotify.Create, &Change{ChangeCreated, file}},
		{"write", file, fsnotify.Write, &Change{ChangeUpdated, file}},
		{"write and chmod", file, fsnotify.Write | fsnotify.Chmod, &Change{ChangeUpdated, file}},
		{"remove", filepath.Join(dir, "old.pdf"), fsnotify.Remove, &Change{ChangeDeleted, filepath.Join(dir, "old.pdf")}},
		{"rename", filepath.Join(dir, "old.pdf"), fsnotify.Rename, &Change{ChangeDeleted, filepath.Join(dir, "old.pdf")}},
		{"chmod only", file, fsnotify.Chmod, nil},
		{"directory", sub, fsnotify.Create, nil},
		{"filtered extension", filepath.Join(dir, "a.txt"), fsnotify.Remove, nil},
		{"hidden", filepath.Join(dir, ".a.pdf"), fsnotify.Remove, nil},
		{"nested", filepath.Join(sub, "inner.pdf"), fsnotify.Remove, nil},
		{"vanished before stat", filepath.Join(dir, "missing.pdf"), fsnotify.Create, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, got)
		})
	}
}
