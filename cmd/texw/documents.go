package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/state"
	"github.com/eolymp/go-latex-editor/store"
)

func importDocument(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	src, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}

	s, err := env.Store()
	if err != nil {
		return err
	}

	title := cmd.String("title")
	if len(title) == 0 {
		title = src.title()
	}

	doc := &store.Document{Title: title, Content: src.markup}
	if err := s.SaveDocument(ctx, doc); err != nil {
		return err
	}

	env.Log.Info("Document imported", zap.Stringer("id", doc.ID), zap.String("title", doc.Title))

	_, err = fmt.Fprintln(cmd.Root().Writer, doc.ID)
	return err
}

func storedDocument(ctx context.Context, cmd *cli.Command) (*store.Store, *store.Document, error) {
	id := cmd.Args().First()
	if len(id) == 0 {
		return nil, nil, errors.New("no document ID has been specified")
	}

	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed document id '%s': %w", id, err)
	}

	s, err := state.EnvFromContext(ctx).Store()
	if err != nil {
		return nil, nil, err
	}

	doc, err := s.Document(ctx, docID)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load document: %w", err)
	}

	return s, doc, nil
}

func exportDocument(ctx context.Context, cmd *cli.Command) error {
	_, doc, err := storedDocument(ctx, cmd)
	if err != nil {
		return err
	}

	dest := cmd.Args().Get(1)

	var out io.Writer = cmd.Root().Writer
	if len(dest) > 0 && dest != stdio {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dest, err)
		}
		defer f.Close()
		out = f
	}

	if _, err := io.WriteString(out, doc.Content); err != nil {
		return fmt.Errorf("unable to export document: %w", err)
	}
	return nil
}

func deleteDocument(ctx context.Context, cmd *cli.Command) error {
	s, doc, err := storedDocument(ctx, cmd)
	if err != nil {
		return err
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	state.EnvFromContext(ctx).Log.Info("Document deleted", zap.Stringer("id", doc.ID), zap.String("title", doc.Title))
	return nil
}

func listDocuments(ctx context.Context, cmd *cli.Command) error {
	s, err := state.EnvFromContext(ctx).Store()
	if err != nil {
		return err
	}

	docs, err := s.Documents(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED\tSHARED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", d.ID, d.Title, d.UpdatedAt.Local().Format(time.DateTime), len(d.ShareToken) > 0)
	}
	return tw.Flush()
}
