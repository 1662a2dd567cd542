package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/sym"
)

// DagCmd groups local DAG inspection subcommands.
var DagCmd = &cobra.Command{
	Use:   "dag",
	Short: sym.DB + " Inspect the local validation DAG",
}

var dagStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record, edge, and root counts",
	RunE:  runDagStats,
}

func init() {
	DagCmd.AddCommand(dagStatsCmd)
}

func runDagStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := openDAG(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	stats, err := d.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("%s DAG statistics\n", sym.DB)
	fmt.Printf("Records:   %d\n", stats.RecordCount)
	fmt.Printf("Edges:     %d\n", stats.EdgeCount)
	fmt.Printf("Roots:     %d\n", stats.RootCount)
	if stats.RecordCount > 0 {
		fmt.Printf("Oldest ts: %.3f\n", stats.OldestTimestamp)
		fmt.Printf("Newest ts: %.3f\n", stats.NewestTimestamp)
	}
	return nil
}
