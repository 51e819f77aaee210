package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jathurchan/rtiexec/fom"
)

func newFOMCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fom",
		Short: "Object model catalog tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a YAML object model catalog is well formed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFOMValidate(cmd.OutOrStdout(), rootOpts, args[0])
		},
	})
	return cmd
}

type catalogSummary struct {
	Valid              bool   `json:"valid"`
	Name               string `json:"name"`
	ObjectClasses      int    `json:"object_classes"`
	Attributes         int    `json:"attributes"`
	InteractionClasses int    `json:"interaction_classes"`
	Parameters         int    `json:"parameters"`
}

func summarize(c *fom.Catalog) catalogSummary {
	s := catalogSummary{Valid: true, Name: c.Name()}
	for _, oc := range c.ObjectClasses() {
		s.ObjectClasses++
		s.Attributes += len(oc.Attributes())
	}
	for _, ic := range c.InteractionClasses() {
		s.InteractionClasses++
		s.Parameters += len(ic.Parameters)
	}
	return s
}

func runFOMValidate(w io.Writer, rootOpts *rootOptions, path string) error {
	catalog, err := fom.LoadFile(path)
	if err != nil {
		return err
	}
	s := summarize(catalog)

	if rootOpts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	_, err = fmt.Fprintf(w, "✓ %s: %d object classes (%d attributes), %d interaction classes (%d parameters)\n",
		s.Name, s.ObjectClasses, s.Attributes, s.InteractionClasses, s.Parameters)
	return err
}
