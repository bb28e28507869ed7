package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/note-inspector-go/internal/storage"
)

func writeReference(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLabelFromName(t *testing.T) {
	assert.Equal(t, "500", LabelFromName("500.jpg"))
	assert.Equal(t, "500", LabelFromName("notes/500.jpg"))
	assert.Equal(t, "2000_new", LabelFromName("2000_new.PNG"))
	assert.Equal(t, "10.old", LabelFromName("10.old.jpeg"))
}

func TestReferenceRepository_FiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, dir, "500.jpg", "a")
	writeReference(t, dir, "100.PNG", "b")
	writeReference(t, dir, "notes.txt", "c")
	writeReference(t, dir, "200.gif", "d")

	repo := NewReferenceRepository(storage.NewLocalStorage(dir), "", nil)
	refs, err := repo.ListReferences(context.Background())

	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "100.PNG", refs[0].Name)
	assert.Equal(t, "100", refs[0].Label)
	assert.Equal(t, "500.jpg", refs[1].Name)
}

func TestReferenceRepository_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, dir, "500.jpg", "a")
	writeReference(t, dir, "200.webp", "d")

	repo := NewReferenceRepository(storage.NewLocalStorage(dir), "", []string{"webp"})
	refs, err := repo.ListReferences(context.Background())

	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "200", refs[0].Label)
}

func TestReferenceRepository_LoadReferences(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, dir, "500.jpg", "five hundred")
	writeReference(t, dir, "10.png", "ten")

	images, err := NewReferenceRepository(storage.NewLocalStorage(dir), "", nil).LoadReferences(context.Background())

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "10", images[0].Label)
	assert.Equal(t, "10.png", images[0].Source)
	assert.Equal(t, []byte("ten"), images[0].Data)
	assert.Equal(t, "500", images[1].Label)
}

func TestReferenceRepository_Fingerprint(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, dir, "500.jpg", "five hundred")
	repo := NewReferenceRepository(storage.NewLocalStorage(dir), "", nil)
	ctx := context.Background()

	first, err := repo.Fingerprint(ctx)
	require.NoError(t, err)
	again, err := repo.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	writeReference(t, dir, "ignored.txt", "x")
	unchanged, err := repo.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, unchanged)

	writeReference(t, dir, "100.jpg", "one hundred")
	added, err := repo.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, added)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "100.jpg"), future, future))
	touched, err := repo.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, added, touched)
}

func TestReferenceRepository_MissingDirectory(t *testing.T) {
	repo := NewReferenceRepository(storage.NewLocalStorage(filepath.Join(t.TempDir(), "absent")), "", nil)

	_, err := repo.LoadReferences(context.Background())
	assert.Error(t, err)
	_, err = repo.Fingerprint(context.Background())
	assert.Error(t, err)
}
