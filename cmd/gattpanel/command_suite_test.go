package main

import (
	"bytes"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/devicefactory"
	"github.com/srg/gattpanel/internal/testutils"
	"github.com/srg/gattpanel/internal/testutils/mocks"
	"github.com/stretchr/testify/suite"
)

// Test device address for consistent mock peripheral identification
const TestDeviceAddress = "00:00:00:00:00:01"

// CommandTestSuite replaces the BLE stack, the TTY check and the bubbletea
// program runner with test doubles.
type CommandTestSuite struct {
	suite.Suite
	Helper *testutils.TestHelper
	Stack  *mocks.Stack

	// TTY is the answer of the replaced isTerminal.
	TTY bool
	// Program, when set, replaces running the bubbletea program.
	Program func(m tea.Model) (tea.Model, error)

	stackOpts devicefactory.Options

	origStackFactory func(devicefactory.Options, *logrus.Logger) (device.Stack, error)
	origIsTerminal   func(*os.File) bool
	origRunProgram   func(tea.Model, io.Reader, io.Writer) (tea.Model, error)
}

func (s *CommandTestSuite) SetupTest() {
	s.Helper = testutils.NewTestHelper(s.T())
	s.Stack = mocks.NewStack(device.ShapeIdentifiers)
	s.TTY = true
	s.Program = nil
	s.stackOpts = devicefactory.Options{}

	s.origStackFactory = devicefactory.StackFactory
	s.origIsTerminal = isTerminal
	s.origRunProgram = runProgram

	devicefactory.StackFactory = func(opts devicefactory.Options, _ *logrus.Logger) (device.Stack, error) {
		s.stackOpts = opts
		return s.Stack, nil
	}
	isTerminal = func(*os.File) bool { return s.TTY }
	runProgram = func(m tea.Model, _ io.Reader, _ io.Writer) (tea.Model, error) {
		if s.Program == nil {
			return m, nil
		}
		return s.Program(m)
	}

	resetFlags(rootCmd)
}

func (s *CommandTestSuite) TearDownTest() {
	devicefactory.StackFactory = s.origStackFactory
	isTerminal = s.origIsTerminal
	runProgram = s.origRunProgram
	s.Stack.AssertExpectations(s.T())
}

// StackOptions returns the options the stack factory was called with.
func (s *CommandTestSuite) StackOptions() devicefactory.Options {
	return s.stackOpts
}

// ExecuteCommand runs the root command with args and returns stdout, stderr and the error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
