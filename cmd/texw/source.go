package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/document"
	"github.com/eolymp/go-latex-editor/state"
	"github.com/eolymp/go-latex-editor/store"
)

const stdio = "-"

// source is a document the command works on: a file, STDIN or a document kept in the store.
type source struct {
	path   string
	stored *store.Document
	markup string
}

func idFlag() cli.Flag {
	return &cli.StringFlag{Name: "id", Usage: "work on stored document with `ID` instead of a file"}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{Name: "output", Aliases: []string{"o"},
		Usage: "write resulting markup to `FILE` (\"-\" for STDOUT) instead of updating the source"}
}

func setFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "set field value, `NAME=VALUE`, may be repeated"}
}

func openSource(ctx context.Context, cmd *cli.Command) (*source, error) {
	env := state.EnvFromContext(ctx)

	if id := cmd.String("id"); len(id) > 0 {
		docID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("malformed document id '%s': %w", id, err)
		}

		s, err := env.Store()
		if err != nil {
			return nil, err
		}

		doc, err := s.Document(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("unable to load document: %w", err)
		}

		return &source{stored: doc, markup: doc.Content}, nil
	}

	path := cmd.Args().First()
	if len(path) == 0 {
		return nil, errors.New("no SOURCE has been specified")
	}

	var (
		data []byte
		err  error
	)

	if path == stdio {
		data, err = io.ReadAll(cmd.Root().Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read source '%s': %w", path, err)
	}

	return &source{path: path, markup: string(data)}, nil
}

// title is used for page titles and default names.
func (s *source) title() string {
	switch {
	case s.stored != nil:
		return s.stored.Title
	case s.path == stdio:
		return "document"
	default:
		return strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	}
}

// assetsDir resolves configured assets directory, relative one is taken from the source file location.
func (s *source) assetsDir(ctx context.Context) string {
	dir := state.EnvFromContext(ctx).Cfg.Rendering.AssetsDir
	if filepath.IsAbs(dir) || len(s.path) == 0 || s.path == stdio {
		return dir
	}

	return filepath.Join(filepath.Dir(s.path), dir)
}

// sibling returns a path next to the source with another extension.
func (s *source) sibling(ext string) string {
	if len(s.path) == 0 || s.path == stdio {
		return s.title() + ext
	}

	return strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ext
}

// save writes updated markup back to where it came from, unless --output is given.
func (s *source) save(ctx context.Context, cmd *cli.Command, markup string) error {
	env := state.EnvFromContext(ctx)

	dest := cmd.String("output")
	if len(dest) == 0 {
		if s.stored != nil {
			st, err := env.Store()
			if err != nil {
				return err
			}

			s.stored.Content = markup
			if err := st.SaveDocument(ctx, s.stored); err != nil {
				return err
			}

			env.Log.Debug("Document stored", zap.Stringer("id", s.stored.ID))
			return nil
		}
		dest = s.path
	}

	if dest == stdio {
		if _, err := io.WriteString(cmd.Root().Writer, markup); err != nil {
			return fmt.Errorf("unable to write markup: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(dest, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("unable to write markup to '%s': %w", dest, err)
	}

	env.Log.Debug("Markup written", zap.String("file", dest))
	return nil
}

// load builds document model of the source.
func (s *source) load(ctx context.Context, name string, opts ...document.Option) (*document.Document, *zap.Logger, error) {
	log := state.EnvFromContext(ctx).Log.Named(name)

	doc, err := document.Load(s.markup, append([]document.Option{document.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load document: %w", err)
	}

	return doc, log, nil
}

// pickNode finds node by its position as shown by inspect, counting from 1.
func pickNode(doc *document.Document, position int) (*document.Node, error) {
	nodes := doc.Nodes()
	if position < 1 || position > len(nodes) {
		return nil, fmt.Errorf("node %d does not exist, document has %d node(s)", position, len(nodes))
	}

	return nodes[position-1], nil
}

// assignments splits "name=value" arguments.
func assignments(args []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || len(strings.TrimSpace(name)) == 0 {
			return nil, fmt.Errorf("malformed assignment %s, expected NAME=VALUE", strconv.Quote(arg))
		}

		pairs = append(pairs, [2]string{strings.TrimSpace(name), value})
	}

	return pairs, nil
}

// destination is the argument following SOURCE, stored documents take no SOURCE argument.
func destination(cmd *cli.Command) string {
	if len(cmd.String("id")) > 0 {
		return cmd.Args().Get(0)
	}
	return cmd.Args().Get(1)
}
