package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LockCmd creates the lock command
func LockCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <solution-id> <assignment-id>",
		Short: "Lock an assignment so future solves preserve it",
		Args:  cobra.ExactArgs(2),
		RunE:  setLockRunE(app, true),
	}
}

// UnlockCmd creates the unlock command
func UnlockCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <solution-id> <assignment-id>",
		Short: "Unlock an assignment so future solves may move it",
		Args:  cobra.ExactArgs(2),
		RunE:  setLockRunE(app, false),
	}
}

func setLockRunE(app *AppContext, locked bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sol, err := app.Edits.SetLock(app.Ctx, args[0], args[1], locked)
		if err != nil {
			return err
		}
		fmt.Printf("Created solution %s (version %d)\n", sol.ID, sol.Version)
		return nil
	}
}
