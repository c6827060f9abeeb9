package main

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func scanCmd(g *globalFlags) *cobra.Command {
	var (
		limit   int
		payload bool
	)

	cmd := &cobra.Command{
		Use:   "scan <address>",
		Short: "Look up transactions mentioning an address since the last scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.requestConfig()
			if err != nil {
				return err
			}
			address, err := solanago.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("parse address %q: %w", args[0], err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			svc, st, log, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := svc.Scan(ctx, address, cfg, limit)
			if result != nil {
				for _, res := range result.Results {
					if perr := printResult(cmd.OutOrStdout(), res, payload); perr != nil {
						return perr
					}
				}
				log.Info().
					Str("address", address.String()).
					Int("signatures", result.Signatures).
					Int("found", result.Found).
					Int("cached", result.Cached).
					Int("not_found", result.NotFound).
					Int("failed", result.Failed).
					Dur("duration", result.Duration).
					Msg("scan complete")
			}
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum signatures to look up (0 for no limit)")
	cmd.Flags().BoolVar(&payload, "payload", false, "Include the canonical response payload")
	return cmd
}
