package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"casebook/internal/ipc"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects the daemon has watched",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Projects()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Projects)
				}
				out := cmd.OutOrStdout()
				if len(resp.Projects) == 0 {
					fmt.Fprintln(out, "No projects recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Projects))
				for _, p := range resp.Projects {
					rows = append(rows, []string{
						p.Root,
						p.LastOpenedAt.Local().Format(time.DateTime),
						strconv.Itoa(p.Assets),
						strconv.Itoa(p.Overrides),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Project", "Last Opened", "Assets", "Overrides"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
