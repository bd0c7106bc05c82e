package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/gattpanel/inspector"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/devicefactory"
	"github.com/srg/gattpanel/internal/errreg"
	"github.com/srg/gattpanel/internal/panel"
	"github.com/srg/gattpanel/internal/ui"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <device-address>",
	Short: "Connect once and print the GATT services",
	Long: `Connects to the peripheral, retrieves its GATT services, prints them and
disconnects. json and yaml print the services exactly as reported by the
backend; text prints the service tree with known Bluetooth SIG names.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

var dumpFormat string

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "", "Output format (json, yaml, text; default from config)")
}

func runDump(cmd *cobra.Command, args []string) error {
	address := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format := cfg.OutputFormat
	if cmd.Flags().Changed("format") {
		format = dumpFormat
	}
	if !slices.Contains(ui.Formats, format) {
		return fmt.Errorf("invalid format: %s (must be one of %s)", format, strings.Join(ui.Formats, ", "))
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	logger, closeLog, err := configureLogger(cfg, "", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	stack, err := devicefactory.StackFactory(devicefactory.Options{
		Backend:        cfg.Backend,
		Adapter:        cfg.Adapter,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)
	if err != nil {
		return err
	}

	progressCallback := func(string) {}
	if isTerminal(os.Stderr) {
		progress := NewProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Inspecting device %s", address),
			inspector.PhaseConnecting, inspector.PhaseProcessing, inspector.PhaseFailed)
		progress.Start()
		defer progress.Stop()
		progressCallback = progress.Callback()
	}

	_, err = inspector.Inspect(cmd.Context(), device.Peripheral{ID: address}, stack, errreg.New(logger, errreg.WithCapacity(cfg.ErrorHistory)), logger, progressCallback,
		func(_ *panel.Panel, info *device.ServiceInfo) (struct{}, error) {
			return struct{}{}, ui.Dump(cmd.OutOrStdout(), info, format)
		})
	return err
}
