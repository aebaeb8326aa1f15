package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	latex "github.com/eolymp/go-latex-editor"
	"github.com/eolymp/go-latex-editor/document"
	"github.com/eolymp/go-latex-editor/modal"
	"github.com/eolymp/go-latex-editor/state"
)

func newController(ctx context.Context, doc *document.Document, log *zap.Logger) *modal.Controller {
	opts := []modal.Option{modal.WithLogger(log)}
	if state.EnvFromContext(ctx).Cfg.Editor.PreviewMath {
		opts = append(opts, modal.WithMathRenderer(modal.MathRendererFunc(func(markup string) (string, error) {
			return latex.PlainMath(markup), nil
		})))
	}

	return modal.NewController(doc, opts...)
}

// apply sets field values in order, so enabling a toggle may be followed by fields depending on it.
func apply(s *modal.Session, args []string) error {
	pairs, err := assignments(args)
	if err != nil {
		return err
	}

	for _, p := range pairs {
		if err := s.Set(p[0], p[1]); err != nil {
			return err
		}
	}

	return nil
}

func printFields(cmd *cli.Command, s *modal.Session) error {
	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tLABEL\tVALUE")
	for _, f := range s.Fields() {
		value := fmt.Sprintf("%q", f.Value)
		if !f.Enabled {
			value += " (disabled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Label, value)
	}
	if preview := s.Preview(); len(preview) > 0 {
		fmt.Fprintf(tw, "\nPreview:\t%s\n", preview)
	}
	return tw.Flush()
}

func editNode(ctx context.Context, cmd *cli.Command) error {
	src, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}

	doc, log, err := src.load(ctx, "edit")
	if err != nil {
		return err
	}
	defer doc.Close()

	n, err := pickNode(doc, cmd.Int("node"))
	if err != nil {
		return err
	}

	s, err := newController(ctx, doc, log).Open(n)
	if err != nil {
		return fmt.Errorf("unable to edit node: %w", err)
	}

	if cmd.Bool("fields") {
		defer s.Cancel()
		return printFields(cmd, s)
	}

	if cmd.Bool("delete") {
		if len(cmd.StringSlice("set")) > 0 {
			_ = s.Cancel()
			return errors.New("--set can not be combined with --delete")
		}
		if err := s.Delete(); err != nil {
			return fmt.Errorf("unable to delete node: %w", err)
		}
	} else {
		if err := apply(s, cmd.StringSlice("set")); err != nil {
			_ = s.Cancel()
			return fmt.Errorf("unable to edit node: %w", err)
		}
		if err := s.Save(); err != nil {
			return fmt.Errorf("unable to save node: %w", err)
		}
	}

	log.Info("Node edited", zap.Stringer("kind", s.Node().Kind()), zap.Stringer("result", s.State()))

	return src.save(ctx, cmd, doc.Markup())
}

func insertNode(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	kind, err := latex.ParseConstructKind(cmd.String("kind"))
	if err != nil {
		return err
	}

	src, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}

	doc, log, err := src.load(ctx, "insert")
	if err != nil {
		return err
	}
	defer doc.Close()

	var after *document.Node
	if position := cmd.Int("after"); position > 0 {
		if after, err = pickNode(doc, position); err != nil {
			return err
		}
	}

	n, err := doc.Insert(kind, after)
	if err != nil {
		return fmt.Errorf("unable to insert %v: %w", kind, err)
	}

	s, err := newController(ctx, doc, log).Open(n)
	if err != nil {
		return fmt.Errorf("unable to edit inserted node: %w", err)
	}

	args := cmd.StringSlice("set")
	if kind == latex.ImageKind {
		args = append([]string{"width=" + latex.FormatFraction(env.Cfg.Editor.ImageWidthDefault)}, args...)
	}

	if err := apply(s, args); err != nil {
		_ = s.Cancel()
		return fmt.Errorf("unable to edit inserted node: %w", err)
	}
	if err := s.Save(); err != nil {
		return fmt.Errorf("unable to save inserted node: %w", err)
	}

	log.Info("Node inserted", zap.Stringer("kind", kind), zap.String("label", n.Label()))

	return src.save(ctx, cmd, doc.Markup())
}
