package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// JobsCmd creates the jobs command
func JobsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <job-id>",
		Short: "Show the status of a solve job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.Jobs.Status(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Job %s (%s, org %s)\n", view.ID, view.Status, view.OrgID)
			if view.SolverStatus != "" {
				fmt.Printf("  solver status: %s\n", view.SolverStatus)
			}
			if view.SolutionID != "" {
				fmt.Printf("  solution: %s\n", view.SolutionID)
			}
			for _, c := range view.Conflicts {
				fmt.Printf("  [%s] %s\n", c.Kind, c.Detail)
			}
			if view.Err != "" {
				fmt.Printf("  error: %s\n", view.Err)
			}
			return nil
		},
	}
}
