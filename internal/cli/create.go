package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/domain"
)

func init() {
	f := addCmd.Flags()
	f.StringVar(&addType, "type", "daily", "Task type: daily, weekly or backlog")
	f.StringVar(&addTier, "tier", "C", "Tier: S, A, B or C")
	f.StringVar(&addCategory, "category", "", "Free-form category (default LIFE)")
	f.StringVar(&addDate, "date", "today", "Scheduled day for daily tasks (YYYY-MM-DD)")
	f.StringVar(&addDeadline, "deadline", "", "Deadline day (YYYY-MM-DD)")
	f.StringVar(&addRepeat, "repeat", "", "Repeat days for weekly tasks, 0=Sun … 6=Sat (e.g. 1,3,5)")
	f.IntVar(&addDuration, "duration", 0, "Allocated minutes (enables the duration bonus)")
	f.IntVar(&addFreq, "freq", 1, "Ticks needed to finish")
	taskCmd.AddCommand(addCmd)
}

var (
	addType     string
	addTier     string
	addCategory string
	addDate     string
	addDeadline string
	addRepeat   string
	addDuration int
	addFreq     int
)

var addCmd = &cobra.Command{
	Use:   "add TITLE...",
	Short: "Create a task",
	Long: `Create a task.

Examples:
  gitgud task add "Finish thesis chapter" --tier S --duration 90
  gitgud task add Gym --type weekly --repeat 1,3,5 --tier B
  gitgud task add "Read a paper" --type backlog --tier A`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	req, err := buildCreateRequest(strings.Join(args, " "), time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := s.ledger.Create(ctx, s.userID, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s [%s] %s\n", mutedStyle.Render(shortID(task.ID)), tierText(task.Tier), task.Title)
	return nil
}

// buildCreateRequest turns the add flags into a ledger request.
func buildCreateRequest(title string, now time.Time) (ledger.CreateRequest, error) {
	req := ledger.CreateRequest{Title: title, Category: addCategory, Frequency: addFreq}

	var err error
	if req.Type, err = domain.ParseTaskType(addType); err != nil {
		return req, err
	}
	if req.Tier, err = domain.ParseTier(addTier); err != nil {
		return req, err
	}
	if addDuration > 0 {
		d := addDuration
		req.AllocatedDuration = &d
	}

	if req.Deadline, err = parseDay(addDeadline, now); err != nil {
		return req, err
	}

	switch req.Type {
	case domain.TaskDaily:
		if req.ScheduledDate, err = parseDay(addDate, now); err != nil {
			return req, err
		}
	case domain.TaskWeekly:
		if req.RepeatDays, err = domain.ParseWeekdays(addRepeat); err != nil {
			return req, err
		}
	}
	return req, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
