package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gitgud-app/gitgud/internal/app/identity"
	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/daemon"
	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── Local session ──────────────────────────────────────────────────────────

// session is a ledger opened on the configured store for one user.
type session struct {
	cfg    daemon.Config
	store  domain.Store
	ledger *ledger.Service
	userID string
}

// openSession opens the store and resolves the acting user, creating it on
// first use.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	email := userEmail
	if email == "" {
		email = os.Getenv("GITGUD_EMAIL")
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("no user: pass --email or set GITGUD_EMAIL")
	}

	logger := daemon.NewLogger(daemon.LoggingConfig{Level: "warn", Format: cfg.Logging.Format}, os.Stderr)
	store, err := daemon.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	resolver, err := identity.NewResolver(store, 1, true, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	userID, err := resolver.Resolve(ctx, email)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{
		cfg:    cfg,
		store:  store,
		ledger: daemon.NewLedger(cfg, store, logger),
		userID: userID,
	}, nil
}

func (s *session) Close() { s.store.Close() }

// resolveTask expands a unique id prefix to a full task id.
func (s *session) resolveTask(ctx context.Context, prefix string) (string, error) {
	tasks, err := s.ledger.ListTasks(ctx, s.userID, ledger.TaskQuery{})
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tasks {
		if t.ID == prefix {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrTaskNotFound, prefix)
	}
	return match, nil
}

// parseDay reads a YYYY-MM-DD flag; "today" and "tomorrow" are accepted.
func parseDay(s string, now time.Time) (*time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "today":
		d := domain.DateOf(now)
		return &d, nil
	case "tomorrow":
		d := domain.DateOf(now).AddDate(0, 0, 1)
		return &d, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("bad date %q (want YYYY-MM-DD)", s)
	}
	return &d, nil
}

// ─── Theme ──────────────────────────────────────────────────────────────────

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	goldStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

func labelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", keyStyle.Render(label+":"), value)
}

func tierText(t domain.Tier) string {
	switch t {
	case domain.TierS:
		return goldStyle.Render(string(t))
	case domain.TierA:
		return titleStyle.Render(string(t))
	case domain.TierB:
		return keyStyle.Render(string(t))
	default:
		return mutedStyle.Render(string(t))
	}
}

func stateText(p domain.Progress) string {
	switch p.State() {
	case domain.StateDone:
		return goodStyle.Render("done")
	case domain.StatePartial:
		return warnStyle.Render(fmt.Sprintf("%d/%d", p.CompletedFrequency, p.Frequency))
	default:
		return mutedStyle.Render("pending")
	}
}

// progressBar renders pct (0..100) as a fixed-width bar.
func progressBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	return goodStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}
