package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aster",
		Short: "Window compositor for the framebuffer",
		Long:  "aster arbitrates a framebuffer among client windows: stacking, damage-driven redraw, and input routing over a Unix domain socket.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newWindowsCmd(),
		newEndCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// setupLogging configures the global logger: human-readable on a terminal,
// JSON otherwise. ASTER_LOG selects the level.
func setupLogging() {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("ASTER_LOG")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	zerolog.SetGlobalLevel(level)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
