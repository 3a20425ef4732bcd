package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/rotasolve/pkg/core/services"
)

// SolveCmd creates the solve command
func SolveCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run the schedule solver for an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, _ := cmd.Flags().GetString("org")
			budgetSeconds, _ := cmd.Flags().GetInt("budget")
			parentID, _ := cmd.Flags().GetString("parent")

			req := services.SolveRequest{
				OrgID:            orgID,
				ParentSolutionID: parentID,
			}
			if budgetSeconds > 0 {
				req.TimeBudget = time.Duration(budgetSeconds) * time.Second
			}

			jobID, err := app.Jobs.Submit(req)
			if err != nil {
				var inProgress *services.SolveInProgressError
				if errors.As(err, &inProgress) {
					fmt.Printf("A solve is already running for this organization (job %s)\n", inProgress.JobID)
					return nil
				}
				return err
			}

			fmt.Printf("Submitted solve job %s\n", jobID)

			view, err := pollJob(app, jobID)
			if err != nil {
				return err
			}

			switch view.Status {
			case services.JobFailed:
				return fmt.Errorf("solve failed: %s", view.Err)
			case services.JobCancelled:
				fmt.Println("Solve was cancelled before finding a feasible solution")
				return nil
			}

			fmt.Printf("Solver status: %s\n", view.SolverStatus)
			if view.SolutionID != "" {
				fmt.Printf("Solution: %s\n", view.SolutionID)
			}
			for _, c := range view.Conflicts {
				fmt.Printf("  conflict [%s] %s\n", c.Kind, c.Detail)
			}
			return nil
		},
	}

	cmd.Flags().String("org", "", "Organization ID (required)")
	cmd.Flags().Int("budget", 0, "Time budget in seconds (default from config)")
	cmd.Flags().String("parent", "", "Solution version to re-solve from, preserving its locks")
	cmd.MarkFlagRequired("org")

	return cmd
}

// pollJob waits for the job to finish. An interrupt cancels the job and keeps
// polling: the solver hands back its best incumbent rather than dying mid-search.
func pollJob(app *AppContext, jobID string) (services.JobView, error) {
	cancelled := false
	for {
		view, err := app.Jobs.Status(jobID)
		if err != nil {
			return services.JobView{}, err
		}
		switch view.Status {
		case services.JobDone, services.JobFailed, services.JobCancelled:
			return view, nil
		}

		if cancelled {
			// Ctx stays closed after the interrupt; poll on the timer alone
			time.Sleep(200 * time.Millisecond)
			continue
		}

		select {
		case <-app.Ctx.Done():
			app.Jobs.Cancel(jobID)
			cancelled = true
		case <-time.After(200 * time.Millisecond):
		}
	}
}
