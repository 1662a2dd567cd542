package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"

	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/identity"
	"github.com/navigatorbuilds/elara-core/record"
)

// VerifyCmd checks a proof file's signature and, if the companion file
// is present, its content hash. Exit code is 0 on success, 1 on
// verification failure or signature mismatch.
var VerifyCmd = &cobra.Command{
	Use:   "verify <proof>",
	Short: "Verify a signature proof produced by `elara sign`",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	proofPath := args[0]

	raw, err := os.ReadFile(proofPath)
	if err != nil {
		return errors.Wrapf(err, "read proof %s", proofPath)
	}

	var proof proofFile
	if err := json.Unmarshal(raw, &proof); err != nil {
		return errors.Wrap(err, "parse proof")
	}

	wire, err := hex.DecodeString(proof.WireHex)
	if err != nil {
		return errors.Wrap(err, "decode wire hex")
	}

	rec, err := record.FromBytes(wire)
	if err != nil {
		fmt.Println("INVALID")
		return errVerificationFailed
	}

	signable, err := rec.SignableBytes()
	if err != nil {
		fmt.Println("INVALID")
		return errVerificationFailed
	}

	ok, err := identity.VerifyPrimary(rec.CreatorPublicKey, signable, rec.Signature)
	if err != nil {
		pterm.Warning.Printf("primary signature check unavailable: %v\n", err)
	} else if !ok {
		fmt.Println("INVALID")
		return errVerificationFailed
	}

	if recomputed, err := rec.RecomputeID(); err != nil || recomputed != rec.ID {
		fmt.Println("INVALID")
		return errVerificationFailed
	}

	companionPath := filepath.Join(filepath.Dir(proofPath), proof.Filename)
	if companion, err := os.ReadFile(companionPath); err == nil {
		companionSum := sha3.Sum256(companion)
		contentSum := sha3.Sum256(rec.Content)
		if companionSum != contentSum {
			fmt.Println("MISMATCH")
			return errVerificationFailed
		}
	}

	pterm.Success.Println("VALID")
	fmt.Printf("Record:   %s\n", rec.ID)
	fmt.Printf("Creator:  %s\n", proof.CreatorIdentityHash)
	fmt.Printf("Class:    %s\n", rec.Classification)
	return nil
}
