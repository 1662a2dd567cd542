package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/cmd/elara/commands"
	"github.com/navigatorbuilds/elara-core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "elara",
	Short: "elara - cryptographic cognitive substrate node",
	Long: `elara provides identity, a content-addressed validation DAG, a
cognitive continuity chain, and a peer-to-peer witness network for a
persistent AI assistant.

Available commands:
  init        - bootstrap a new node's data directory and identity
  doctor      - run local health checks
  serve       - start the node's full runtime
  node        - inspect or control a running node
  sign        - sign a file into the local DAG and emit a proof
  verify      - verify a proof produced by sign
  identity    - show this node's signing identity
  dag         - inspect the local validation DAG
  continuity  - inspect the cognitive continuity chain
  testnet     - run a local multi-node testnet`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(false, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase output verbosity")

	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.NodeCmd)
	rootCmd.AddCommand(commands.SignCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.IdentityCmd)
	rootCmd.AddCommand(commands.DagCmd)
	rootCmd.AddCommand(commands.ContinuityCmd)
	rootCmd.AddCommand(commands.TestnetCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
