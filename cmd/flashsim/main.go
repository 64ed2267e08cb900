// Command flashsim drives the flash controller driver against a simulated
// STM32F1/GD32F1 controller whose flash image persists in a state file.
//
// Each invocation is one power cycle of the simulated device: the image is
// loaded (which resets the controller and latches the option bytes), one
// command runs through the driver, and the image is saved if it changed.
//
//	flashsim --state dev.img program 0x08004000 app.bin
//	flashsim --state dev.img dump 0x08004000 64
//	flashsim --state dev.img --profile stm32f103.yaml protect --wrp 0x10
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ardnew/softflash/pkg"
)

// globalFlags holds the flags shared by every command.
type globalFlags struct {
	profile string
	state   string
	verbose bool
	json    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pkg.LogError(pkg.ComponentCLI, "command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "flashsim",
		Short:         "Exercise the flash controller driver on a simulated device",
		Long:          "Erase, program, inspect and protect a simulated STM32F1/GD32F1 flash array through the bootloader flash driver.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.profile, "profile", "", "device profile (YAML); default is a gd32f1 with 64K flash and 16K bootloader")
	root.PersistentFlags().StringVar(&g.state, "state", "flash.img", "flash image file; created erased if missing")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "output logs as JSON")

	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if g.verbose {
			pkg.SetLogLevel(slog.LevelDebug)
		} else {
			pkg.SetLogLevel(slog.LevelInfo)
		}
		format := pkg.LogFormatText
		if g.json {
			format = pkg.LogFormatJSON
		}
		pkg.SetLogOutput(cmd.ErrOrStderr(), format)
	}

	root.AddCommand(
		newInfoCmd(g),
		newEraseCmd(g),
		newProgramCmd(g),
		newLoadCmd(g),
		newCheckCmd(g),
		newDumpCmd(g),
		newWipeCmd(g),
		newProtectCmd(g),
		newOptionsCmd(g),
	)
	return root
}

// printf writes command output.
func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
