package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"solana-tx-resolver/internal/txshape"
)

func shapesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shapes",
		Short: "Print the response shape table, marking the one selected by the flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := txshape.Shape(0)
			if cfg, err := g.requestConfig(); err == nil {
				selected = txshape.Resolve(cfg).Shape
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tSHAPE\tBODY\tINSTRUCTIONS\tINNER\tVERSION\tLOOKUPS\tLOADED")
			for _, s := range txshape.Shapes {
				d, _ := txshape.Describe(s)
				mark := ""
				if s == selected {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					mark, s, d.Family, d.BodyInstructions, d.InnerInstructions,
					d.Version, d.AddressTableLookups, d.LoadedAddresses)
			}
			return w.Flush()
		},
	}
}
