package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/importer"
	"casebook/internal/ipc"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		category string
		project  string
		offline  bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Copy files into a project's asset folders",
		Long: "Copy files into a project's asset folders. When the daemon is running the copy\n" +
			"goes through it (defaulting to the watched project); otherwise the files are\n" +
			"copied in-process into --project or paths.default_project.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" {
				if _, ok := assets.ParseCategory(category); !ok {
					return fmt.Errorf("invalid category %q (expected one of %s)", category, categoryNames())
				}
			}
			files := make([]importer.File, 0, len(args))
			for _, arg := range args {
				source, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				files = append(files, importer.File{SourcePath: source, CategoryHint: category})
			}

			var root string
			if strings.TrimSpace(project) != "" {
				resolved, err := resolveProjectArg(ctx, []string{project})
				if err != nil {
					return err
				}
				root = resolved
			}

			var (
				result importer.Result
				err    error
			)
			var client *ipc.Client
			if !offline {
				client = ctx.tryClient()
			}
			if client != nil {
				defer client.Close()
				var resp *ipc.ImportResponse
				resp, err = client.Import(ipc.ImportRequest{Files: files, ProjectRoot: root})
				if resp != nil {
					result = resp.Result
				}
			} else {
				if root == "" {
					if root, err = resolveProjectArg(ctx, nil); err != nil {
						return err
					}
				}
				cfg, cfgErr := ctx.ensureConfig()
				if cfgErr != nil {
					return cfgErr
				}
				result, err = importer.New(cfg, ctx.logger()).ImportBatch(cmd.Context(), files, root)
			}
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printImport(cmd.OutOrStdout(), result)
			}
			if result.Errors > 0 {
				return fmt.Errorf("%d of %d files failed to import", result.Errors, len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category hint applied to every file")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Target project root")
	cmd.Flags().BoolVar(&offline, "offline", false, "Copy in-process even when the daemon is running")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printImport(w io.Writer, result importer.Result) {
	rows := make([][]string, 0, len(result.Details))
	for _, d := range result.Details {
		status := "copied"
		if !d.Success {
			status = d.Error
		}
		dest := d.Destination
		if dest == "" {
			dest = "-"
		}
		rows = append(rows, []string{d.File, categoryLabel(d.Category), dest, status})
	}
	if len(rows) > 0 {
		fmt.Fprint(w, renderTable([]string{"File", "Category", "Destination", "Status"}, rows, nil))
	}
	fmt.Fprintf(w, "Copied %d, failed %d\n", result.Copied, result.Errors)
}
