package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/identity"
)

// IdentityCmd prints the node's signing identity.
var IdentityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Show this node's signing identity",
	RunE:  runIdentity,
}

func runIdentity(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id, err := openIdentity(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Hash:              %s\n", id.Hash)
	fmt.Printf("Entity type:       %s\n", id.EntityType)
	fmt.Printf("Profile:           %s\n", id.Profile)
	fmt.Printf("Primary public key: %s\n", hex.EncodeToString(id.PrimaryPublicKey))
	if id.Profile == identity.ProfileDual {
		fmt.Printf("Backup public key:  %s\n", hex.EncodeToString(id.BackupPublicKey))
		fmt.Printf("DID:               %s\n", identity.EncodeDIDKey(id.BackupPublicKey))
	}
	return nil
}
