package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "gattpanel",
	Short: "Inspect the GATT services of a BLE peripheral",
	Long: `Connects to a Bluetooth Low Energy peripheral, retrieves its GATT services and
characteristics, and shows them in an interactive terminal panel or dumps them
as JSON, YAML or a text tree.

The BLE backend is go-ble (macOS, Linux HCI) or BlueZ over D-Bus (Linux).`,
	Version: formatVersion(version),
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	// main() prints errors itself
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("gattpanel %s (commit %s, built %s)\n", formatVersion(version), commit, date))

	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(dumpCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("verbose", false, "Shortcut for --log-level debug")
	flags.String("backend", "", "BLE backend (auto, go-ble, bluez)")
	flags.String("adapter", "", "BlueZ adapter name (default hci0)")
	flags.Duration("connect-timeout", 0, "Connection timeout for the go-ble backend (default 30s)")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
