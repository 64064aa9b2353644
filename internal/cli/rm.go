package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	taskCmd.AddCommand(rmCmd)
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a task and reclaim the XP it earned",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.resolveTask(ctx, args[0])
	if err != nil {
		return err
	}
	res, err := s.ledger.Delete(ctx, s.userID, id)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %s", shortID(id))
	if res.XPRemoved > 0 {
		fmt.Printf(" (%s)", warnStyle.Render(fmt.Sprintf("-%d XP", res.XPRemoved)))
	}
	fmt.Println()
	return nil
}
