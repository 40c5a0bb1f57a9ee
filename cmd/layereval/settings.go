package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/setting"
)

func newSettingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "List the layer settings a run evaluates",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := setting.Enumerate(a.cfg.Evaluation.Layers)
			if err != nil {
				return err
			}
			baseline, err := setting.Baseline(settings, a.cfg.Evaluation.Baseline)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tSETTING\tBASELINE")
			for _, s := range settings {
				mark := ""
				if s.Index == baseline.Index {
					mark = "*"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Index, s.Label, mark)
			}
			return tw.Flush()
		},
	}
}
