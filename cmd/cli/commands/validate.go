package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <solution-id>",
		Short: "Revalidate a stored solution against current data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Validator.ValidateSolution(app.Ctx, args[0])
			if err != nil {
				return err
			}

			if !report.HasConflicts() {
				fmt.Println("No conflicts")
				return nil
			}

			fmt.Printf("%d conflict(s):\n", len(report))
			for _, c := range report {
				fmt.Printf("  [%s] %s\n", c.Kind, c.Detail)
			}
			return nil
		},
	}
}
