package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/domain"
)

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "Only tasks on this day (YYYY-MM-DD, today, tomorrow)")
	listCmd.Flags().StringVar(&listType, "type", "", "Only this type: daily, weekly or backlog")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Fuzzy title filter")
	taskCmd.AddCommand(listCmd)
}

var (
	listDate   string
	listType   string
	listSearch string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	q := ledger.TaskQuery{Search: listSearch}
	var err error
	if q.Date, err = parseDay(listDate, time.Now()); err != nil {
		return err
	}
	if listType != "" {
		t, err := domain.ParseTaskType(listType)
		if err != nil {
			return err
		}
		q.Type = &t
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := s.ledger.ListTasks(ctx, s.userID, q)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'gitgud task add <title>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIER\tTYPE\tWHEN\tSTATE\tXP\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(t.ID),
			t.Tier,
			t.Type,
			when(t),
			stateText(t.Progress),
			t.FinalPoints,
			t.Title,
		)
	}
	return w.Flush()
}

func when(t domain.Task) string {
	switch {
	case t.Type == domain.TaskWeekly:
		return "days " + t.RepeatDays.String()
	case t.ScheduledDate != nil:
		return domain.DateKey(*t.ScheduledDate)
	default:
		return "-"
	}
}
