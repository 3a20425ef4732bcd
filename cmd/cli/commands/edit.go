package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/rotasolve/pkg/core/services"
)

type changeFile struct {
	Changes []struct {
		Op     string `yaml:"op"`
		Person string `yaml:"person"`
		Event  string `yaml:"event"`
		Role   string `yaml:"role"`
	} `yaml:"changes"`
}

// EditCmd creates the edit command
func EditCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <solution-id>",
		Short: "Apply a manual change set to a solution, producing a new draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read change set: %w", err)
			}
			var cf changeFile
			if err := yaml.Unmarshal(data, &cf); err != nil {
				return fmt.Errorf("failed to parse change set: %w", err)
			}

			changes := make([]services.AssignmentChange, 0, len(cf.Changes))
			for _, c := range cf.Changes {
				changes = append(changes, services.AssignmentChange{
					Op:       services.ChangeOp(c.Op),
					PersonID: c.Person,
					EventID:  c.Event,
					Role:     c.Role,
				})
			}

			outcome, err := app.Edits.ProposeChange(app.Ctx, args[0], changes)
			if err != nil {
				return err
			}

			if !outcome.Accepted {
				fmt.Printf("Change set rejected, %d conflict(s):\n", len(outcome.Conflicts))
				for _, c := range outcome.Conflicts {
					fmt.Printf("  [%s] %s\n", c.Kind, c.Detail)
				}
				return nil
			}

			fmt.Printf("Created draft %s (version %d)\n", outcome.Solution.ID, outcome.Solution.Version)
			return nil
		},
	}

	cmd.Flags().String("file", "", "YAML change set file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

// CommitCmd creates the commit command
func CommitCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <solution-id>",
		Short: "Promote a draft solution to committed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sol, err := app.Edits.Commit(app.Ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Committed solution %s (version %d)\n", sol.ID, sol.Version)
			return nil
		},
	}
}
