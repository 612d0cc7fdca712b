package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/services/replay"
)

func newReplayCmd() *cobra.Command {
	var side string

	cmd := &cobra.Command{
		Use:   "replay <url>",
		Short: "Print what the opponent had revealed at every turn of a replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := replay.NewClient(nil, zap.NewNop())
			r, err := client.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := struct {
				Title string               `json:"title"`
				Turns []replay.TurnSummary `json:"turns"`
			}{Title: r.Title, Turns: replay.Turns(r.Lines, side)}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&side, "side", battlelog.DefaultSideID, "our side id (p1 or p2)")
	return cmd
}
