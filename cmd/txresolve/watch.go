package main

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"solana-tx-resolver/internal/logger"
	"solana-tx-resolver/internal/lookup"
	"solana-tx-resolver/internal/solana"
)

func watchCmd(g *globalFlags) *cobra.Command {
	var (
		mentions   []string
		skipFailed bool
		payload    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Look up transactions as their logs are streamed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.requestConfig()
			if err != nil {
				return err
			}

			keys := make([]solanago.PublicKey, 0, len(mentions))
			for _, m := range mentions {
				pk, err := solanago.PublicKeyFromBase58(m)
				if err != nil {
					return fmt.Errorf("parse address %q: %w", m, err)
				}
				keys = append(keys, pk)
			}

			ctx, cancel := signalContext()
			defer cancel()

			svc, st, log, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			wsConfig := solana.DefaultWSConfig()
			wsConfig.Logger = logger.Component(log, "ws")
			ws, err := solana.NewWSClient(ctx, g.wsEndpoint, &wsConfig)
			if err != nil {
				return fmt.Errorf("create websocket client: %w", err)
			}
			defer ws.Close()

			watcher, err := lookup.NewWatcher(lookup.WatcherOptions{
				WS:         ws,
				Service:    svc,
				Mentions:   keys,
				Config:     cfg,
				SkipFailed: skipFailed,
				Logger:     logger.Component(log, "watcher"),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return watcher.Run(ctx, func(res *lookup.Result) {
				if err := printResult(out, res, payload); err != nil {
					log.Error().Err(err).Msg("write result")
				}
			})
		},
	}

	cmd.Flags().StringSliceVar(&mentions, "mentions", nil, "Addresses to watch (default: all transactions)")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "Ignore failed transactions")
	cmd.Flags().BoolVar(&payload, "payload", false, "Include the canonical response payload")
	return cmd
}
