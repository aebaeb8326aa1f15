package publish

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/eolymp/go-latex-editor/store"
)

// LocalSharer shares documents kept in the local store: a document gets a random share token once and keeps it.
type LocalSharer struct {
	Store       *store.Store
	FrontendURL string
}

func (s *LocalSharer) Share(ctx context.Context, docID string) (string, error) {
	doc, err := s.document(ctx, docID)
	if err != nil {
		return "", err
	}

	if doc.ShareToken == "" {
		doc.ShareToken = newShareToken()

		if err := s.Store.SaveDocument(ctx, doc); err != nil {
			return "", err
		}
	}

	return ShareURL(s.FrontendURL, doc.ShareToken), nil
}

// Revoke drops the share token, previously issued links stop working.
func (s *LocalSharer) Revoke(ctx context.Context, docID string) error {
	doc, err := s.document(ctx, docID)
	if err != nil {
		return err
	}

	if doc.ShareToken == "" {
		return nil
	}

	doc.ShareToken = ""
	return s.Store.SaveDocument(ctx, doc)
}

func (s *LocalSharer) document(ctx context.Context, docID string) (*store.Document, error) {
	id, err := uuid.Parse(docID)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", docID, err)
	}

	return s.Store.Document(ctx, id)
}

// newShareToken returns 32 hex digits
func newShareToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
