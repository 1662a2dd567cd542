package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/continuity"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/sym"
)

// ContinuityCmd groups cognitive checkpoint chain subcommands.
var ContinuityCmd = &cobra.Command{
	Use:   "continuity",
	Short: sym.Chain + " Inspect the cognitive continuity chain",
}

var continuityStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current chain head and checkpoint count",
	RunE:  runContinuityStatus,
}

var continuityVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the chain from its head and report any breaks",
	RunE:  runContinuityVerify,
}

func init() {
	ContinuityCmd.AddCommand(continuityStatusCmd)
	ContinuityCmd.AddCommand(continuityVerifyCmd)
}

func runContinuityStatus(cmd *cobra.Command, args []string) error {
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

	chain, err := continuity.Open(id, d, eventbus.New(0), staticProvider{}, continuityPath(cfg), nil)
	if err != nil {
		return err
	}

	state := chain.State()
	fmt.Printf("%s Continuity chain\n", sym.Chain)
	fmt.Printf("Head:            %s\n", shortOrNone(state.ChainHead))
	fmt.Printf("Checkpoints:     %d\n", state.ChainCount)
	fmt.Printf("Created:         %.3f\n", state.Created)
	fmt.Printf("Last checkpoint: %.3f\n", state.LastCheckpoint)
	return nil
}

func runContinuityVerify(cmd *cobra.Command, args []string) error {
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

	chain, err := continuity.Open(id, d, eventbus.New(0), staticProvider{}, continuityPath(cfg), nil)
	if err != nil {
		return err
	}

	result := chain.VerifyChain()
	if result.OK {
		fmt.Printf("%s chain OK, %d checkpoints verified\n", sym.Chain, result.VerifiedCount)
		return nil
	}

	fmt.Printf("%s chain BROKEN, %d checkpoints verified before the first break\n", sym.Chain, result.VerifiedCount)
	for _, b := range result.Breaks {
		fmt.Printf("  - %s\n", b)
	}
	return errVerificationFailed
}

func shortOrNone(head string) string {
	if head == "" {
		return "(none)"
	}
	if len(head) > 12 {
		return head[:12]
	}
	return head
}
