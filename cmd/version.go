package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version, Commit and BuildDate are overridden at build time via
// -ldflags "-X gridhouse/cmd.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionFormat = `
Version: %s
Commit: %s
Build date: %s
GOOS: %s-%s`

var versionCmd = &cobra.Command{
	Use: "version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf(
			versionFormat+"\n",
			Version,
			Commit,
			BuildDate,
			runtime.GOOS,
			runtime.GOARCH,
		)
	},
}
