package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	llm        string
	strategy   string
	logLevel   string
	addr       string // set by serve
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "ratemyfit",
		Short:         "Outfit rating, feedback recovery and clothing-tag extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.ratemyfit/config.yaml)")
	flags.StringVar(&opts.dbPath, "db", "", "database path (default ~/.ratemyfit/ratemyfit.db)")
	flags.StringVar(&opts.llm, "llm", "", "LLM provider/model (e.g. google/gemini-2.5-flash, openrouter/openai/gpt-4o-mini)")
	flags.StringVar(&opts.strategy, "strategy", "", "extraction strategy: basic, standard or advanced")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(extractCmd(opts))
	rootCmd.AddCommand(parseFeedbackCmd())
	rootCmd.AddCommand(rateCmd(opts))
	rootCmd.AddCommand(outfitCmd(opts))
	rootCmd.AddCommand(seedCmd(opts))
	rootCmd.AddCommand(syncWhitelistCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(configCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(mcpCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ratemyfit %s\n", version)
		},
	}
}
