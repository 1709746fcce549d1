/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gridhouse/internal/logger"
	"gridhouse/internal/server"
	"gridhouse/internal/state"
)

// rootCmd represents base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "gridhouse",
	Short: "An in-memory key-value server with lists, sorted sets and a write-ahead log",
	Long: `gridhouse is a single-process in-memory key-value server built in Go.
It keeps strings, lists and sorted sets in memory, serves them over a
bulk-array wire protocol, and durably records every write to an
append-only transaction log, with full-state snapshots written on BGSAVE.`,
	Run: func(cmd *cobra.Command, args []string) {
		logLevel := logger.LogLevel(getStringFlag(cmd, "log-level", "info"))
		logger.Init(logLevel)

		dataDir := getStringFlag(cmd, "dir", "./data")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			logger.Fatalf("failed to create data directory %s: %v", dataDir, err)
		}

		sc, err := state.Open(dataDir)
		if err != nil {
			logger.Fatalf("failed to open state context: %v", err)
		}
		if err := sc.Restore(); err != nil {
			logger.Fatalf("failed to restore from %s: %v", dataDir, err)
		}

		addr := getStringFlag(cmd, "addr", server.DefaultAddr)
		srv := server.New(addr, sc)

		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Errorf("server stopped: %v", err)
			}
		}()
		logger.Infof("gridhouse listening on %s, data dir %s", addr, dataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down")
		if err := srv.Close(); err != nil {
			logger.Errorf("error closing server: %v", err)
		}
		if err := sc.Close(); err != nil {
			logger.Errorf("error closing state context: %v", err)
		}
	},
}

// Execute adds child commands to root and sets flags appropriately.
// Called by main.main(). Only needs to happen once to rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.Flags().String("dir", "./data", "Data directory for the transaction log and snapshots")
	rootCmd.Flags().String("addr", server.DefaultAddr, "Bind address")
}

func getStringFlag(cmd *cobra.Command, name, defaultValue string) string {
	if value, err := cmd.Flags().GetString(name); err == nil && value != "" {
		return value
	}
	return defaultValue
}

func getBoolFlag(cmd *cobra.Command, name string) bool {
	if value, err := cmd.Flags().GetBool(name); err == nil {
		return value
	}
	return false
}

func getIntFlag(cmd *cobra.Command, name string, defaultValue int) int {
	if value, err := cmd.Flags().GetInt(name); err == nil {
		return value
	}
	return defaultValue
}
