package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopvox/loopvox/config"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "loopvox",
	Short: "Voice-driven multi-instrument loop engine",
	Long: `loopvox turns a sung or beatboxed performance into synchronized
instrument layers: drums establish the loop, then bass, guitar, piano and
voice passes are recorded against the same cycle.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(performCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(padsCmd)
}
