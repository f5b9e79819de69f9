package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"calorie/internal/cli"
	applog "calorie/internal/log"
	"calorie/internal/services"
	"calorie/internal/store/memory"
	"calorie/internal/tui"
)

var (
	flagTheme  string
	flagBudget string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the counter in the terminal",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&flagTheme, "theme", tui.FlexokiDark.Name, "Color theme (flexoki-dark, catppuccin-mocha)")
	tuiCmd.Flags().StringVar(&flagBudget, "budget", "", "Pre-filled daily budget")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	// the terminal owns stdout while the program runs
	logger, err := cli.SetupLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	if !tui.SetActive(flagTheme) {
		return fmt.Errorf("unknown theme %q", flagTheme)
	}

	diary := services.NewDiaryService(memory.NewWithBudget(flagBudget), nil, logger.WithComponent(applog.ComponentTUI).Slog())
	m, err := tui.New(cmd.Context(), diary)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
