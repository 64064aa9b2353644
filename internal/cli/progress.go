package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitgud-app/gitgud/internal/app/ledger"
)

func init() {
	doneCmd.Flags().IntVarP(&doneCount, "count", "n", 0, "Ticks to record (default: all remaining)")
	doneCmd.Flags().BoolVar(&doneBonus, "bonus", false, "Claim the weekly bonus (weekly tasks only)")
	doneCmd.Flags().BoolVar(&doneDurationMet, "duration-met", false, "The allocated time was honoured")
	undoCmd.Flags().IntVarP(&undoCount, "count", "n", 0, "Ticks to reverse (default: all recorded)")
	taskCmd.AddCommand(doneCmd, undoCmd)
}

var (
	doneCount       int
	doneBonus       bool
	doneDurationMet bool
	undoCount       int
)

var doneCmd = &cobra.Command{
	Use:   "done ID",
	Short: "Record progress on a task and collect XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

var undoCmd = &cobra.Command{
	Use:   "undo ID",
	Short: "Reverse recorded progress and give the XP back",
	Args:  cobra.ExactArgs(1),
	RunE:  runUndo,
}

func optCount(cmd *cobra.Command, n int) *int {
	if !cmd.Flags().Changed("count") {
		return nil
	}
	return &n
}

func runDone(cmd *cobra.Command, args []string) error {
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
	res, err := s.ledger.Complete(ctx, s.userID, ledger.CompleteRequest{
		TaskID:        id,
		Count:         optCount(cmd, doneCount),
		IsWeeklyBonus: doneBonus,
		DurationMet:   doneDurationMet,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderReward(res))
	return nil
}

// renderReward prints the XP breakdown of one completion.
func renderReward(res *ledger.CompleteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", goodStyle.Render(fmt.Sprintf("+%d XP", res.Total)), mutedStyle.Render(fmt.Sprintf("(base %d", res.Base)+bonusParts(res)+")"))
	if res.IsFullyCompleted {
		fmt.Fprintf(&b, "%s ", goodStyle.Render("Task complete."))
	} else {
		fmt.Fprintf(&b, "%s ", warnStyle.Render(fmt.Sprintf("%d ticks recorded.", res.NewCompletedFrequency)))
	}
	b.WriteString(labelValue("Streak", goldStyle.Render(fmt.Sprintf("%d", res.NewStreak))))
	return b.String()
}

func bonusParts(res *ledger.CompleteResult) string {
	var parts []string
	if res.StreakBonus > 0 {
		parts = append(parts, fmt.Sprintf("streak +%d", res.StreakBonus))
	}
	if res.DurationBonus > 0 {
		parts = append(parts, fmt.Sprintf("duration +%d", res.DurationBonus))
	}
	if res.WeeklyBonus > 0 {
		parts = append(parts, fmt.Sprintf("weekly +%d", res.WeeklyBonus))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}

func runUndo(cmd *cobra.Command, args []string) error {
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
	res, err := s.ledger.Uncomplete(ctx, s.userID, ledger.UncompleteRequest{
		TaskID: id,
		Count:  optCount(cmd, undoCount),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
		warnStyle.Render(fmt.Sprintf("-%d XP", res.XPRemoved)),
		mutedStyle.Render(fmt.Sprintf("(%d ticks left)", res.NewCompletedFrequency)))
	return nil
}
