package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func open(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "texw.db"), zaptest.NewLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})

	return s
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first := &Document{Content: "\\vspace{1cm}"}
	require.NoError(t, s.SaveDocument(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "Untitled", first.Title)
	assert.Equal(t, clock, first.CreatedAt)

	clock = clock.Add(time.Hour)

	second := &Document{Title: "Notes", Content: "$\\sum_{i=1}^{n} a_i$"}
	require.NoError(t, s.SaveDocument(ctx, second))

	got, err := s.Document(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *first, *got)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID)

	// update keeps creation time
	clock = clock.Add(time.Hour)
	first.Content = "\\newpage"
	first.ShareToken = "abc123"
	require.NoError(t, s.SaveDocument(ctx, first))
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, clock, first.UpdatedAt)

	shared, err := s.SharedDocument(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "\\newpage", shared.Content)

	docs, err = s.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, docs[0].ID)

	require.NoError(t, s.DeleteDocument(ctx, first.ID))
	assert.ErrorIs(t, s.DeleteDocument(ctx, first.ID), ErrNotFound)

	_, err = s.Document(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SharedDocument(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArtifacts(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	key := ArtifactKey("\\documentclass{article}")
	assert.Len(t, key, 64)
	assert.NotEqual(t, key, ArtifactKey("\\documentclass{book}"))

	_, err := s.Artifact(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	pdf := []byte("%PDF-1.5\n...")
	require.NoError(t, s.PutArtifact(ctx, key, pdf))

	got, err := s.Artifact(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	n, err := s.PruneArtifacts(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Artifact(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:", nil)
	require.NoError(t, err)

	doc := &Document{Title: "Scratch"}
	require.NoError(t, s.SaveDocument(context.Background(), doc))

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.NoError(t, s.Close())
}

func TestCancelledContext(t *testing.T) {
	s := open(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Documents(ctx)
	assert.Error(t, err)
}
