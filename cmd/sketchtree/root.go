package main

import (
	"io"

	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/internal/config"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *sketchtree.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "sketchtree",
		Short: "Index and search MinHash sketches",
		Long: `sketchtree builds Sequence Bloom Trees over MinHash sketches and finds
every indexed sketch whose similarity to a query reaches a threshold.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()

			lvl, err := cfg.Log.SlogLevel()
			if err != nil {
				return err
			}
			if cfg.Log.Format == "json" {
				a.logger = sketchtree.NewJSONLogger(lvl)
			} else {
				a.logger = sketchtree.NewTextLogger(lvl)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML configuration file")

	cmd.AddCommand(
		newIndexCmd(a),
		newSearchCmd(a),
		newInfoCmd(a),
		newServeCmd(a),
	)
	return cmd
}
