package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"casebook/internal/assets"
	"casebook/internal/ipc"
)

func newAssetCommands(ctx *commandContext) []*cobra.Command {
	var category string
	var listJSON bool
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "List assets tracked by the watch session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" {
				if _, ok := assets.ParseCategory(category); !ok {
					return fmt.Errorf("invalid category %q (expected one of %s)", category, categoryNames())
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AssetList(category)
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, resp.Assets)
				}
				out := cmd.OutOrStdout()
				if len(resp.Assets) == 0 {
					fmt.Fprintln(out, "No assets tracked")
					return nil
				}
				fmt.Fprint(out, renderTable(assetHeaders(), assetRows(resp.Assets), assetAligns()))
				return nil
			})
		},
	}
	assetsCmd.Flags().StringVar(&category, "category", "", "Only list assets in this category")
	assetsCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	var describeJSON bool
	describeCmd := &cobra.Command{
		Use:   "describe <path|id>",
		Short: "Show one tracked asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AssetDescribe(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if describeJSON {
					return writeJSON(cmd, resp.Asset)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderFields(describeAsset(resp.Asset)))
				return nil
			})
		},
	}
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "Output as JSON")

	var (
		name   string
		loop   bool
		volume float64
	)
	setCmd := &cobra.Command{
		Use:   "set <relative-path>",
		Short: "Set user metadata (name, loop, volume) for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var override assets.Override
			flags := cmd.Flags()
			if flags.Changed("name") {
				override.DisplayName = &name
			}
			if flags.Changed("loop") {
				override.Loop = &loop
			}
			if flags.Changed("volume") {
				if volume < 0 || volume > 1 {
					return fmt.Errorf("volume must be between 0 and 1, got %v", volume)
				}
				override.Volume = &volume
			}
			if override.IsZero() {
				return errors.New("nothing to set (use --name, --loop, or --volume)")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Set(ipc.SetRequest{RelativePath: args[0], Override: override})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.Found {
					fmt.Fprintf(out, "Saved metadata for %s (not tracked yet)\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Updated %s\n", resp.Asset.RelativePath)
				fmt.Fprint(out, renderFields(describeAsset(resp.Asset)))
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&name, "name", "", "Display name")
	setCmd.Flags().BoolVar(&loop, "loop", false, "Loop playback (audio only)")
	setCmd.Flags().Float64Var(&volume, "volume", 1, "Playback volume between 0 and 1 (audio only)")

	return []*cobra.Command{assetsCmd, describeCmd, setCmd}
}

func categoryNames() string {
	names := make([]string, 0, len(assets.Categories))
	for _, c := range assets.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
