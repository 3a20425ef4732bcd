package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/rotasolve/pkg/core/solution"
)

// StatusCmd creates the status command
func StatusCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an organization's latest solution version",
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, _ := cmd.Flags().GetString("org")

			sol, err := app.Solutions.Latest(app.Ctx, orgID)
			if errors.Is(err, solution.ErrNotFound) {
				fmt.Println("No solutions yet")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("Solution %s (version %d, %s)\n", sol.ID, sol.Version, sol.Status)
			fmt.Printf("  coverage gap %d, fairness spread %d, preference mismatch %d, score %.2f\n",
				sol.Score.CoverageGap, sol.Score.FairnessSpread, sol.Score.PreferenceMismatch, sol.Score.Weighted)
			for _, a := range sol.Assignments {
				marker := " "
				if a.Locked {
					marker = "*"
				}
				fmt.Printf("  %s %s  %s  %s\n", marker, a.PersonID, a.EventID, a.Role)
			}
			return nil
		},
	}

	cmd.Flags().String("org", "", "Organization ID (required)")
	cmd.MarkFlagRequired("org")

	return cmd
}
