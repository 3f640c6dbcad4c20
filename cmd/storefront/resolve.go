package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memohai/storefront/internal/catalog"
)

type resolveOptions struct {
	catalogPath string
	text        string
	asJSON      bool
}

type resolveOutput struct {
	DisplayText   string  `json:"display_text"`
	ReferencedIDs []int64 `json:"referenced_ids"`
	FallbackOnly  []int64 `json:"fallback_only"`
}

func newResolveCommand(_ *rootOptions) *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve --catalog catalog.yaml [--text TEXT]",
		Short: "Resolve catalog references in text offline (reads stdin without --text)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := catalog.LoadFixture(opts.catalogPath)
			if err != nil {
				return err
			}
			text := opts.text
			if !cmd.Flags().Changed("text") {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			return runResolve(cmd.OutOrStdout(), products, text, opts.asJSON)
		},
	}
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog fixture")
	cmd.Flags().StringVar(&opts.text, "text", "", "text to resolve")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

func runResolve(w io.Writer, products []catalog.Product, text string, asJSON bool) error {
	snap := catalog.NewSnapshot("", products, time.Now())
	res := snap.Resolve(text)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		fallback := res.FallbackOnly
		if fallback == nil {
			fallback = []int64{}
		}
		return enc.Encode(resolveOutput{
			DisplayText:   res.DisplayText,
			ReferencedIDs: res.ReferencedIDs,
			FallbackOnly:  fallback,
		})
	}

	fmt.Fprintln(w, res.DisplayText)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fallback := make(map[int64]bool, len(res.FallbackOnly))
	for _, id := range res.FallbackOnly {
		fallback[id] = true
	}
	for _, p := range snap.Lookup(res.ReferencedIDs) {
		via := "marker"
		if fallback[p.ID] {
			via = "fallback"
		}
		fmt.Fprintf(w, "%d\t%s\t(%s)\n", p.ID, p.Name, via)
	}
	return nil
}
