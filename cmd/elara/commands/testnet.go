package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/dag"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/network"
	"github.com/navigatorbuilds/elara-core/sym"
	"github.com/navigatorbuilds/elara-core/witness"
)

// TestnetCmd spins up a small fleet of in-process nodes, each with its
// own identity and stores under a scratch directory, wired together as
// peers over loopback HTTP. It exists for local exercising of the peer
// network without provisioning separate machines.
var TestnetCmd = &cobra.Command{
	Use:   "testnet",
	Short: sym.Net + " Run a local multi-node testnet",
	RunE:  runTestnet,
}

var testnetNodes int
var testnetBasePort int

func init() {
	TestnetCmd.Flags().IntVar(&testnetNodes, "nodes", 3, "number of nodes to run")
	TestnetCmd.Flags().IntVar(&testnetBasePort, "base-port", 18765, "first port to bind; subsequent nodes increment from here")
}

type testnetNode struct {
	id  *identity.Identity
	dag *dag.DAG
	wit *witness.Manager
	srv *network.Server
	dir string
}

func runTestnet(cmd *cobra.Command, args []string) error {
	if testnetNodes < 1 {
		return errors.Newf("--nodes must be at least 1, got %d", testnetNodes)
	}

	root, err := os.MkdirTemp("", "elara-testnet-")
	if err != nil {
		return errors.Wrap(err, "create testnet scratch directory")
	}
	pterm.Info.Printf("testnet scratch directory: %s\n", root)

	var nodes []*testnetNode
	cleanup := func() {
		for _, n := range nodes {
			if n.srv != nil {
				_ = n.srv.Stop()
			}
			if n.dag != nil {
				_ = n.dag.Close()
			}
			if n.wit != nil {
				_ = n.wit.Close()
			}
		}
	}
	defer cleanup()

	for i := 0; i < testnetNodes; i++ {
		dir := filepath.Join(root, fmt.Sprintf("node-%d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create node directory %s", dir)
		}

		id, err := identity.Generate(identity.EntityAI, identity.ProfileDual)
		if err != nil {
			return errors.Wrapf(err, "generate identity for node %d", i)
		}
		if err := id.Save(filepath.Join(dir, "identity.json")); err != nil {
			return errors.Wrapf(err, "save identity for node %d", i)
		}

		d, err := dag.Open(filepath.Join(dir, "dag.sqlite"), logger.Logger)
		if err != nil {
			return errors.Wrapf(err, "open dag for node %d", i)
		}
		w, err := witness.Open(filepath.Join(dir, "attestations.sqlite"), logger.Logger)
		if err != nil {
			return errors.Wrapf(err, "open witness store for node %d", i)
		}

		bus := eventbus.New(0)
		port := testnetBasePort + i
		srv := network.NewServer(id, d, w, bus, port, logger.Logger)
		if err := srv.Start(); err != nil {
			return errors.Wrapf(err, "start server for node %d", i)
		}

		nodes = append(nodes, &testnetNode{id: id, dag: d, wit: w, srv: srv, dir: dir})
		pterm.Success.Printf("node %d: identity %s, listening on :%d\n", i, id.ShortHash(), port)
	}

	fmt.Printf("%-6s %-14s %-6s %s\n", "NODE", "IDENTITY", "PORT", "DIRECTORY")
	for i, n := range nodes {
		fmt.Printf("%-6d %-14s %-6d %s\n", i, n.id.ShortHash(), testnetBasePort+i, n.dir)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	pterm.Info.Println("testnet running, press Ctrl+C to stop")
	<-sigChan
	pterm.Info.Println("shutting down testnet...")
	return nil
}
