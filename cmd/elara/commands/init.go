package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/config"
	"github.com/navigatorbuilds/elara-core/sym"
)

// InitCmd bootstraps a fresh node: data directory, identity, and empty
// stores.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: sym.Open + " Initialize a new node",
	Long:  sym.Open + ` init — create a node's data directory, identity, and empty stores`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id, err := openIdentity(cfg)
	if err != nil {
		return err
	}

	d, err := openDAG(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	w, err := openWitnesses(cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	reg, err := openDecisions(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := config.Save(cfg); err != nil {
		return err
	}

	pterm.Success.Printf("Initialized node at %s\n", cfg.DataDir)
	fmt.Printf("Identity:    %s (%s)\n", id.Hash, id.EntityType)
	fmt.Printf("Node type:   %s\n", cfg.Node.Type)
	fmt.Printf("Data dir:    %s\n", cfg.DataDir)
	return nil
}
