package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"casebook/internal/ipc"
	"casebook/internal/notifications"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		since  uint64
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show asset notifications published by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				runCtx := cmd.Context()
				out := cmd.OutOrStdout()
				cursor := since
				printed := false
				for {
					req := ipc.EventsRequest{Since: cursor, Limit: limit}
					if follow {
						req.WaitMillis = int((10 * time.Second).Milliseconds())
					}
					resp, err := client.Events(req)
					if err != nil {
						return fmt.Errorf("fetch events: %w", err)
					}
					if cursor > 0 && resp.Oldest > cursor+1 {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d events dropped from the buffer; run `casebook assets` to resync\n", resp.Oldest-cursor-1)
					}
					for _, evt := range resp.Events {
						if asJSON {
							if err := writeJSON(cmd, evt); err != nil {
								return err
							}
						} else {
							printEvent(out, evt)
						}
						printed = true
					}
					cursor = resp.Next
					if !follow {
						if !printed && !asJSON {
							fmt.Fprintln(out, "No events")
						}
						return nil
					}
					select {
					case <-runCtx.Done():
						return nil
					default:
					}
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep waiting for new events")
	cmd.Flags().Uint64Var(&since, "since", 0, "Only show events after this sequence number")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum events per fetch (0 for all buffered)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output one JSON object per event")
	return cmd
}

func printEvent(w io.Writer, evt notifications.Event) {
	ts := evt.Timestamp.Local().Format(time.TimeOnly)
	switch evt.Type {
	case notifications.EventAssetAdded:
		if evt.Asset != nil {
			fmt.Fprintf(w, "%5d %s + %s [%s] %s\n", evt.Sequence, ts, evt.Asset.RelativePath, categoryLabel(evt.Asset.Category), shortID(evt.Asset.ID))
			return
		}
	case notifications.EventAssetRemoved:
		fmt.Fprintf(w, "%5d %s - %s\n", evt.Sequence, ts, evt.AssetID)
		return
	case notifications.EventError:
		fmt.Fprintf(w, "%5d %s ! %s\n", evt.Sequence, ts, evt.Message)
		return
	}
	fmt.Fprintf(w, "%5d %s %s %s\n", evt.Sequence, ts, evt.Type, evt.Message)
}
