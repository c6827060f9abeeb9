package main

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func getCmd(g *globalFlags) *cobra.Command {
	var payload bool

	cmd := &cobra.Command{
		Use:   "get <signature>...",
		Short: "Look up transactions by signature",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.requestConfig()
			if err != nil {
				return err
			}

			sigs := make([]solanago.Signature, len(args))
			for i, arg := range args {
				sig, err := solanago.SignatureFromBase58(arg)
				if err != nil {
					return fmt.Errorf("parse signature %q: %w", arg, err)
				}
				sigs[i] = sig
			}

			ctx, cancel := signalContext()
			defer cancel()

			svc, st, _, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := svc.LookupMany(ctx, sigs, cfg)
			if err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if err := printResult(cmd.OutOrStdout(), res, payload); err != nil {
					return err
				}
				if res.Outcome.IsFailure() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&payload, "payload", false, "Include the canonical response payload")
	return cmd
}
