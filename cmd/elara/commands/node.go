package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/config"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/sym"
)

// NodeCmd groups node lifecycle and topology subcommands.
var NodeCmd = &cobra.Command{
	Use:   "node",
	Short: sym.Net + " Inspect and control this node",
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show identity, node type, and local store counts",
	RunE:  runNodeStatus,
}

var nodePeersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List configured peers",
	RunE:  runNodePeers,
}

var nodeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the node's runtime in the foreground",
	RunE:  runNodeStart,
}

var nodeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running node (started with `node start`) to shut down",
	RunE:  runNodeStop,
}

func init() {
	NodeCmd.AddCommand(nodeStatusCmd)
	NodeCmd.AddCommand(nodePeersCmd)
	NodeCmd.AddCommand(nodeStartCmd)
	NodeCmd.AddCommand(nodeStopCmd)
}

func runNodeStatus(cmd *cobra.Command, args []string) error {
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
	stats, err := d.Stats()
	if err != nil {
		return err
	}
	w, err := openWitnesses(cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("%s Node status\n", sym.Net)
	fmt.Printf("Identity:   %s\n", id.Hash)
	fmt.Printf("Type:       %s\n", cfg.Node.Type)
	fmt.Printf("Port:       %d\n", cfg.Network.Port)
	fmt.Printf("DAG records: %d\n", stats.RecordCount)
	if running, pid := readPID(cfg); running {
		fmt.Printf("Running:    yes (pid %d)\n", pid)
	} else {
		fmt.Printf("Running:    no\n")
	}
	return nil
}

// peerEntry is one configured peer in peers.json.
type peerEntry struct {
	Label   string `json:"label"`
	BaseURL string `json:"base_url"`
}

func runNodePeers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(peersPath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no peers configured")
			return nil
		}
		return errors.Wrapf(err, "read %s", peersPath(cfg))
	}

	var peers []peerEntry
	if err := json.Unmarshal(raw, &peers); err != nil {
		return errors.Wrap(err, "parse peers.json")
	}

	if len(peers) == 0 {
		fmt.Println("no peers configured")
		return nil
	}

	fmt.Printf("%-20s %s\n", "LABEL", "BASE URL")
	for _, p := range peers {
		fmt.Printf("%-20s %s\n", p.Label, p.BaseURL)
	}
	return nil
}

func runNodeStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if running, pid := readPID(cfg); running {
		return errors.Newf("node already running (pid %d)", pid)
	}
	return serveForeground(cfg, true)
}

func runNodeStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	running, pid := readPID(cfg)
	if !running {
		return errors.New("no running node found")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrapf(err, "find process %d", pid)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return errors.Wrapf(err, "signal process %d", pid)
	}
	pterm.Success.Printf("sent shutdown signal to pid %d\n", pid)
	return nil
}

// readPID reports whether a pidfile exists and still names a live
// process, as a best-effort liveness check — it does not guarantee the
// process is actually this node's server versus a reused pid.
func readPID(cfg *config.Config) (bool, int) {
	raw, err := os.ReadFile(pidPath(cfg))
	if err != nil {
		return false, 0
	}
	pid, err := strconv.Atoi(string(raw))
	if err != nil {
		return false, 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, 0
	}
	return true, pid
}
