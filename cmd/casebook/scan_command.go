package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/projectstore"
	"casebook/internal/registry"
	"casebook/internal/scanner"
)

type scanOutput struct {
	ProjectRoot string              `json:"project_root"`
	Assets      []assets.Descriptor `json:"assets"`
	Skipped     []scanner.Skip      `json:"skipped,omitempty"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var category string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan [project]",
		Short: "Scan a project's asset folders without the daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter assets.Category
			if category != "" {
				parsed, ok := assets.ParseCategory(category)
				if !ok {
					return fmt.Errorf("invalid category %q (expected one of %s)", category, categoryNames())
				}
				filter = parsed
			}
			root, err := resolveProjectArg(ctx, args)
			if err != nil {
				return err
			}
			result, err := scanner.New(ctx.logger()).Scan(cmd.Context(), root)
			if err != nil {
				return err
			}

			reg := registry.New()
			applyStoredMetadata(cmd.Context(), ctx.configValue(), root, reg)
			reg.Reconcile(result.Candidates)

			out := scanOutput{ProjectRoot: root, Skipped: result.Skipped}
			for _, d := range reg.Snapshot() {
				if filter == "" || d.Category == filter {
					out.Assets = append(out.Assets, d)
				}
			}
			if asJSON {
				return writeJSON(cmd, out)
			}
			printScan(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list assets in this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// applyStoredMetadata seeds reg with the ids and overrides the daemon has
// persisted for root, so offline output matches what a watch would report.
// A missing or unreadable store is not an error here.
func applyStoredMetadata(ctx context.Context, cfg *config.Config, root string, reg *registry.Registry) {
	if cfg == nil {
		return
	}
	store, err := projectstore.Open(cfg)
	if err != nil {
		return
	}
	defer store.Close()
	if bindings, err := store.LoadBindings(ctx, root); err == nil {
		reg.Retain(bindings)
	}
	if overrides, err := store.LoadOverrides(ctx, root); err == nil {
		reg.LoadOverrides(overrides)
	}
}

func printScan(w io.Writer, out scanOutput) {
	if len(out.Assets) == 0 {
		fmt.Fprintf(w, "No assets found in %s\n", out.ProjectRoot)
	} else {
		fmt.Fprint(w, renderTable(assetHeaders(), assetRows(out.Assets), assetAligns()))
		fmt.Fprintf(w, "%d assets in %s\n", len(out.Assets), out.ProjectRoot)
	}
	for _, s := range out.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Path, s.Error)
	}
}
