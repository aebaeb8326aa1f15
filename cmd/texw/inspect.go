package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

type nodeReport struct {
	Position   int               `yaml:"position"`
	Kind       string            `yaml:"kind"`
	Offset     int               `yaml:"offset"`
	Recognized bool              `yaml:"recognized"`
	Label      string            `yaml:"label"`
	Fragment   string            `yaml:"fragment"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

func inspectDocument(ctx context.Context, cmd *cli.Command) error {
	src, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}

	doc, log, err := src.load(ctx, "inspect")
	if err != nil {
		return err
	}
	defer doc.Close()

	nodes := doc.Nodes()
	reports := make([]nodeReport, 0, len(nodes))
	for i, n := range nodes {
		r := nodeReport{
			Position:   i + 1,
			Kind:       n.Kind().String(),
			Offset:     n.Offset(),
			Recognized: n.Recognized(),
			Label:      n.Label(),
			Fragment:   n.Fragment(),
		}
		if attrs, ok := n.Attributes(); ok {
			r.Attributes = attrs
		}
		reports = append(reports, r)
	}

	log.Debug("Document inspected", zap.String("source", src.title()), zap.Int("nodes", len(reports)))

	out := cmd.Root().Writer

	if cmd.Bool("yaml") {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("unable to encode nodes: %w", err)
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tOFFSET\tLABEL")
	for _, r := range reports {
		label := r.Label
		if !r.Recognized {
			label += " (verbatim)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.Position, r.Kind, r.Offset, strings.ReplaceAll(label, "\n", " "))
	}
	return tw.Flush()
}
