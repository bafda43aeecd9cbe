package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"casebook/internal/config"
	"casebook/internal/ipc"
)

func newWatchCommands(ctx *commandContext) []*cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch [project]",
		Short: "Watch a project's asset folders (defaults to paths.default_project)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveProjectArg(ctx, args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Watch(root)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Watching %s\n", resp.Status.ProjectRoot)
				fmt.Fprintf(out, "Tracked assets: %d\n", resp.Status.WatchedFileCount)
				return nil
			})
		},
	}

	unwatchCmd := &cobra.Command{
		Use:   "unwatch",
		Short: "Stop the active watch session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Unwatch(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watch session stopped")
				return nil
			})
		},
	}

	var rescanJSON bool
	rescanCmd := &cobra.Command{
		Use:   "rescan",
		Short: "Reconcile the watched project against the filesystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Rescan()
				if err != nil {
					return err
				}
				if rescanJSON {
					return writeJSON(cmd, resp)
				}
				printRescan(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
	rescanCmd.Flags().BoolVar(&rescanJSON, "json", false, "Output as JSON")

	return []*cobra.Command{watchCmd, unwatchCmd, rescanCmd}
}

func printRescan(out io.Writer, resp *ipc.RescanResponse) {
	for _, d := range resp.Added {
		fmt.Fprintf(out, "+ %s\n", d.RelativePath)
	}
	for _, r := range resp.Removed {
		fmt.Fprintf(out, "- %s\n", r.RelativePath)
	}
	for _, s := range resp.Skipped {
		fmt.Fprintf(out, "! %s: %s\n", s.Path, s.Error)
	}
	fmt.Fprintf(out, "Added %d, removed %d, tracking %d assets\n", len(resp.Added), len(resp.Removed), resp.Tracked)
}

// resolveProjectArg returns the absolute project root from args, falling back
// to the configured default project.
func resolveProjectArg(ctx *commandContext, args []string) (string, error) {
	var root string
	if len(args) > 0 {
		root = strings.TrimSpace(args[0])
	}
	if root == "" {
		if cfg := ctx.configValue(); cfg != nil {
			root = cfg.Paths.DefaultProject
		}
	}
	if root == "" {
		return "", errors.New("project path required (pass one or set paths.default_project)")
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	return expanded, nil
}
