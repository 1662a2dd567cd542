package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navigatorbuilds/elara-core/config"
	"github.com/navigatorbuilds/elara-core/record"
)

func withDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	config.Reset()
	os.Setenv("ELARA_DATA_DIR", dir)
	t.Cleanup(func() {
		config.Reset()
		os.Unsetenv("ELARA_DATA_DIR")
	})
	return dir
}

func TestSignThenVerifySucceeds(t *testing.T) {
	dataDir := withDataDir(t)
	fileDir := t.TempDir()

	filePath := filepath.Join(fileDir, "message.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello elara"), 0o644))

	signClassification = string(record.ClassificationPublic)
	require.NoError(t, runSign(SignCmd, []string{filePath}))

	proofPath := filePath + ".proof.json"
	_, err := os.Stat(proofPath)
	require.NoError(t, err)

	require.NoError(t, runVerify(VerifyCmd, []string{proofPath}))

	_, err = os.Stat(filepath.Join(dataDir, "dag.sqlite"))
	require.NoError(t, err)
}

func TestVerifyDetectsTamperedCompanionFile(t *testing.T) {
	withDataDir(t)
	fileDir := t.TempDir()

	filePath := filepath.Join(fileDir, "message.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("original content"), 0o644))

	signClassification = string(record.ClassificationPublic)
	require.NoError(t, runSign(SignCmd, []string{filePath}))

	require.NoError(t, os.WriteFile(filePath, []byte("tampered content"), 0o644))

	proofPath := filePath + ".proof.json"
	err := runVerify(VerifyCmd, []string{proofPath})
	require.Error(t, err)
}
