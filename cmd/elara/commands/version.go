package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at build time via -ldflags.
var buildVersion = "dev"

// VersionCmd prints the binary's version and Go toolchain.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show elara version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("elara %s (%s/%s, %s)\n", buildVersion, runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}
