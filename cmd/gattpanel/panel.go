package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/devicefactory"
	"github.com/srg/gattpanel/internal/errreg"
	"github.com/srg/gattpanel/internal/panel"
	"github.com/srg/gattpanel/internal/ui"
	"golang.org/x/term"
)

var panelCmd = &cobra.Command{
	Use:   "panel <device-address>",
	Short: "Open the interactive connection panel for a peripheral",
	Long: `Opens a terminal panel that connects to the peripheral and shows its GATT
services once they are retrieved.

Keys: enter/c connect or disconnect & close, q/esc close, j/k scroll, ctrl+c quit.
Logs are written to --log-file, or discarded while the panel is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runPanel,
}

var (
	panelName    string
	panelLogFile string
)

func init() {
	panelCmd.Flags().StringVar(&panelName, "name", "", "Display name of the peripheral")
	panelCmd.Flags().StringVar(&panelLogFile, "log-file", "", "Append logs to this file")
}

// isTerminal and runProgram are variables so that tests can replace them.
var (
	isTerminal = func(f *os.File) bool {
		return term.IsTerminal(int(f.Fd()))
	}

	runProgram = func(m tea.Model, in io.Reader, out io.Writer) (tea.Model, error) {
		return tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(in), tea.WithOutput(out)).Run()
	}
)

func runPanel(cmd *cobra.Command, args []string) error {
	address := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	if !isTerminal(os.Stdout) {
		return ErrNotATerminal
	}

	logger, closeLog, err := configureLogger(cfg, panelLogFile, io.Discard)
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

	registry := errreg.New(logger, errreg.WithCapacity(cfg.ErrorHistory))
	notifier := ui.NewNotifier()
	p := panel.New(
		device.Peripheral{ID: address, Name: panelName},
		stack,
		registry,
		panel.WithLogger(logger),
		panel.WithOnChange(notifier.Notify),
	)

	model := ui.NewModel(cmd.Context(), p, notifier, ui.DefaultTheme())
	if _, err := runProgram(model, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("panel terminated: %w", err)
	}

	printRegisteredErrors(cmd.ErrOrStderr(), registry)
	return nil
}

// printRegisteredErrors lists the errors reported while the panel was open,
// grouped by category in order of first appearance.
func printRegisteredErrors(w io.Writer, registry *errreg.Registry) {
	if registry.Len() == 0 {
		return
	}
	fmt.Fprintf(w, "%d error(s) reported during the session:\n", registry.Len())

	var categories []string
	for _, e := range registry.Entries() {
		if !slices.Contains(categories, e.Category) {
			categories = append(categories, e.Category)
		}
	}
	for _, category := range categories {
		fmt.Fprintf(w, "%s:\n", category)
		for _, e := range registry.ByCategory(category) {
			fmt.Fprintf(w, "  %s %s\n", e.Time.Format("15:04:05"), e.Message)
		}
	}
}
