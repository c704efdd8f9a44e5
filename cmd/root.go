// Package cmd provides the demo-kafka command line: serve runs the harness and
// version prints build information.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// NewRoot constructs the root command. Running it without a subcommand serves.
func NewRoot() *cobra.Command {
	opts := &serveOptions{}
	root := &cobra.Command{
		Use:           "demo-kafka",
		Short:         "Partitioned log demo harness",
		Long:          "demo-kafka produces weighted synthetic events to a partitioned log and consumes them with a shared consumer group.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.bind(root)
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// a missing .env is normal outside development
	_ = godotenv.Load()
	utils.InitLogger()

	if err := NewRoot().ExecuteContext(context.Background()); err != nil {
		utils.Logger.Error("demo-kafka terminated", "err", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "demo-kafka", Version)
		},
	}
}
