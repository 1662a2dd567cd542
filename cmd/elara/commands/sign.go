package commands

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/record"
)

// SignCmd wraps a file's content in a signed validation record and
// writes an external proof alongside it.
var SignCmd = &cobra.Command{
	Use:   "sign <file>",
	Short: "Sign a file and insert it into the local DAG",
	Args:  cobra.ExactArgs(1),
	RunE:  runSign,
}

var signClassification string

func init() {
	SignCmd.Flags().StringVar(&signClassification, "classification", string(record.ClassificationPublic),
		"record classification: PUBLIC or SOVEREIGN")
}

// proofFile is the external artifact `sign` emits and `verify` consumes.
type proofFile struct {
	RecordID            string `json:"record_id"`
	ContentHash         string `json:"content_hash"`
	CreatorIdentityHash string `json:"creator_identity_hash"`
	Classification      string `json:"classification"`
	Filename            string `json:"filename"`
	WireHex             string `json:"wire_hex"`
}

func runSign(cmd *cobra.Command, args []string) error {
	path := args[0]
	classification := record.Classification(signClassification)
	if classification != record.ClassificationPublic && classification != record.ClassificationSovereign {
		return errors.Newf("invalid classification %q: must be PUBLIC or SOVEREIGN", signClassification)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

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

	metadata := map[string]interface{}{"filename": filepath.Base(path)}
	rec, err := record.Create(content, id.PrimaryPublicKey, nil, classification, metadata, nil)
	if err != nil {
		return errors.Wrap(err, "build record")
	}

	signable, err := rec.SignableBytes()
	if err != nil {
		return errors.Wrap(err, "compute signable bytes")
	}
	sig, err := id.Sign(signable)
	if err != nil {
		return errors.Wrap(err, "sign record")
	}
	rec.Signature = sig
	if id.Profile == "dual" {
		backupSig, err := id.SignBackup(signable)
		if err != nil {
			return errors.Wrap(err, "sign backup record")
		}
		rec.BackupSignature = backupSig
	}

	if _, err := d.InsertLocalTrusted(rec); err != nil {
		return errors.Wrap(err, "insert record into dag")
	}

	wire, err := rec.ToBytes()
	if err != nil {
		return errors.Wrap(err, "serialize record")
	}

	proof := proofFile{
		RecordID:            rec.ID,
		ContentHash:         record.ContentHash(wire),
		CreatorIdentityHash: id.Hash,
		Classification:      string(classification),
		Filename:            filepath.Base(path),
		WireHex:             hex.EncodeToString(wire),
	}

	proofBytes, err := json.MarshalIndent(proof, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal proof")
	}

	proofPath := path + ".proof.json"
	if err := os.WriteFile(proofPath, proofBytes, 0o644); err != nil {
		return errors.Wrapf(err, "write proof to %s", proofPath)
	}

	pterm.Success.Printf("Signed %s\n", path)
	pterm.Info.Printf("Record:  %s\n", rec.ID)
	pterm.Info.Printf("Proof:   %s\n", proofPath)
	return nil
}
