package cmd

import (
	"gridhouse/internal/cli"
	"time"

	"github.com/spf13/cobra"
)

// cliCmd represents the CLI command
var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Interactive GridHouse command-line interface",
	Long: `Interactive GridHouse command-line interface similar to redis-cli.
	
Connect to a GridHouse server and execute commands interactively or in batch mode.

Examples:
  gridhouse cli
  gridhouse cli --host 127.0.0.1 --port 8080
  gridhouse cli --eval "SET key value"
  gridhouse cli --file commands.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		cli.RunCLI(&cli.CLIConfig{
			Host:     getStringFlag(cmd, "host", "127.0.0.1"),
			Port:     getIntFlag(cmd, "port", 8080),
			Database: getIntFlag(cmd, "db", 0),
			Timeout:  getDurationFlag(cmd, "timeout", 5*time.Second),
			Raw:      getBoolFlag(cmd, "raw"),
			Eval:     getStringFlag(cmd, "eval", ""),
			File:     getStringFlag(cmd, "file", ""),
			Pipe:     getBoolFlag(cmd, "pipe"),
		}, args)
	},
}

func init() {
	rootCmd.AddCommand(cliCmd)

	// Connection flags
	cliCmd.Flags().String("host", "127.0.0.1", "GridHouse server host")
	cliCmd.Flags().IntP("port", "p", 8080, "GridHouse server port")
	cliCmd.Flags().IntP("db", "d", 0, "Database number")
	cliCmd.Flags().Duration("timeout", 5*time.Second, "Connection timeout")

	// Input/output flags
	cliCmd.Flags().Bool("raw", false, "Use raw formatting for replies")
	cliCmd.Flags().String("eval", "", "Send specified command")
	cliCmd.Flags().String("file", "", "Execute commands from file")
	cliCmd.Flags().Bool("pipe", false, "Pipe mode - read from stdin and write to stdout")
}
