package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/domain"
)

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Day logs to show")
	rootCmd.AddCommand(statsCmd)
}

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, streak and daily efficiency",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := s.ledger.Summary(ctx, s.userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(sum, statsDays))
	return nil
}

// renderSummary lays out the profile panel above the recent day logs.
func renderSummary(sum *ledger.Summary, days int) string {
	p := sum.Profile

	profile := strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("Level %d", p.Level)) + "  " + mutedStyle.Render(p.Email),
		progressBar(p.ProgressPct, 24) + fmt.Sprintf(" %.0f%%", p.ProgressPct),
		labelValue("XP", fmt.Sprintf("%d (%d to next level)", p.XP, p.XPToNextLevel)),
		labelValue("Streak", fmt.Sprintf("%d days ×%.1f", p.StreakDays, p.StreakMultiplier)),
		labelValue("Avg efficiency", fmt.Sprintf("%.0f%%", sum.AverageEfficiency)),
	}, "\n")

	var rows []string
	rows = append(rows, keyStyle.Render(fmt.Sprintf("%-10s %6s %8s %5s %s", "DATE", "XP", "POSSIBLE", "DONE", "EFFICIENCY")))
	if len(sum.DayLogs) == 0 {
		rows = append(rows, mutedStyle.Render("no activity yet"))
	}
	for i, l := range sum.DayLogs {
		if i >= days {
			break
		}
		rows = append(rows, fmt.Sprintf("%-10s %6d %8d %5d %s %3.0f%%",
			domain.DateKey(l.Date), l.TotalXP, l.EffectivePossibleXP, l.TasksDone,
			progressBar(l.Efficiency, 10), l.Efficiency))
	}

	var growth []string
	for _, w := range sum.WeeklyGrowth {
		growth = append(growth, fmt.Sprintf("%s %s", mutedStyle.Render(w.Week), goldStyle.Render(fmt.Sprint(w.TotalXP))))
	}

	panels := []string{
		panelStyle.Render(profile),
		panelStyle.Render(strings.Join(rows, "\n")),
		panelStyle.Render(keyStyle.Render("Weekly XP") + "  " + strings.Join(growth, "  ")),
	}
	if len(sum.Badges) > 0 {
		var badges []string
		for _, b := range sum.Badges {
			badges = append(badges, b.Icon+" "+goldStyle.Render(b.Name))
		}
		panels = append(panels, panelStyle.Render(keyStyle.Render("Badges")+"  "+strings.Join(badges, "  ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}
