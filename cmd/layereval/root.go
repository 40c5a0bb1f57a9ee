package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/logger"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "layereval",
		Short: "Evaluate ranking quality across combinations of evidence layers",
		Long: `layereval ranks candidate documents for every non-empty subset of the
configured layers, scores each ranking against relevance judgments and tests
every subset against the baseline for significance.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config file (defaults and LAYEREVAL_* environment otherwise)")

	root.AddCommand(
		newRunCmd(a),
		newLoadDocsCmd(a),
		newSettingsCmd(a),
		newCheckCmd(a),
	)
	return root
}
