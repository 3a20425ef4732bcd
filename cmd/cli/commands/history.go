package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HistoryCmd creates the history command
func HistoryCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List an organization's solution versions, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, _ := cmd.Flags().GetString("org")

			history, err := app.Solutions.History(app.Ctx, orgID)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Println("No solutions yet")
				return nil
			}

			for _, sol := range history {
				fmt.Printf("v%-3d %s  %-10s  %d assignments  gap=%d  spread=%d  score=%.2f\n",
					sol.Version, sol.ID, sol.Status, len(sol.Assignments),
					sol.Score.CoverageGap, sol.Score.FairnessSpread, sol.Score.Weighted)
			}
			return nil
		},
	}

	cmd.Flags().String("org", "", "Organization ID (required)")
	cmd.MarkFlagRequired("org")

	return cmd
}
