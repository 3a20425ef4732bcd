package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/rotasolve/pkg/core/solution"
)

// DiffCmd creates the diff command
func DiffCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <solution-id-a> <solution-id-b>",
		Short: "Show assignment differences between two solution versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Solutions.Get(app.Ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load solution %s: %w", args[0], err)
			}
			b, err := app.Solutions.Get(app.Ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to load solution %s: %w", args[1], err)
			}

			diff := solution.Compare(a, b)
			if diff.Empty() {
				fmt.Println("No differences")
				return nil
			}

			for _, assignment := range diff.Added {
				fmt.Printf("+ %s  %s  %s\n", assignment.PersonID, assignment.EventID, assignment.Role)
			}
			for _, assignment := range diff.Removed {
				fmt.Printf("- %s  %s  %s\n", assignment.PersonID, assignment.EventID, assignment.Role)
			}
			for _, change := range diff.Changed {
				verb := "unlocked"
				if change.After.Locked {
					verb = "locked"
				}
				fmt.Printf("~ %s  %s  %s  (%s)\n", change.After.PersonID, change.After.EventID, change.After.Role, verb)
			}
			return nil
		},
	}
}
