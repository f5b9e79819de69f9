package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"calorie/internal/core"
	"calorie/internal/tui"
)

var (
	flagComputeBudget string
	flagEntries       = make(map[core.Category]*[]string)
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute a balance from flags and print the summary",
	Example: `  calorie compute --budget 2000 --breakfast 300 --lunch 500 --exercise 100
  calorie compute --budget 1800 --snacks 95 --snacks 120`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		values := make(map[core.Category][]string, len(flagEntries))
		for c, v := range flagEntries {
			values[c] = *v
		}
		return runCompute(cmd.OutOrStdout(), flagComputeBudget, values)
	},
}

func init() {
	computeCmd.Flags().StringVar(&flagComputeBudget, "budget", "", "Daily calorie budget")
	for _, c := range core.Categories() {
		v := new([]string)
		flagEntries[c] = v
		computeCmd.Flags().StringArrayVar(v, string(c), nil, fmt.Sprintf("%s calories (repeatable)", c.Title()))
	}
	rootCmd.AddCommand(computeCmd)
}

// runCompute prints the summary of one balance to w. An invalid calorie text
// returns the alert message as the error.
func runCompute(w io.Writer, budget string, values map[core.Category][]string) error {
	s, err := core.ComputeBalance(budget, values)
	if err != nil {
		var ice *core.InvalidCalorieTextError
		if errors.As(err, &ice) {
			return errors.New("Invalid Input: " + ice.Fragment)
		}
		return err
	}
	_, err = fmt.Fprintln(w, tui.RenderSummary(s))
	return err
}
