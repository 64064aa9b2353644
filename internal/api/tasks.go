package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gitgud-app/gitgud/internal/app/ledger"
	"github.com/gitgud-app/gitgud/internal/domain"
)

// ─── Request decoding ───────────────────────────────────────────────────────

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidTask, err)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidTask, s)
}

// optTime parses a field where "" and null both mean unset.
func optTime(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullableTime converts a raw nullable string field; "" clears like null.
func nullableTime(n domain.Nullable[string]) (domain.Nullable[time.Time], error) {
	if !n.Set {
		return domain.Nullable[time.Time]{}, nil
	}
	t, err := optTime(n.Value)
	if err != nil {
		return domain.Nullable[time.Time]{}, err
	}
	if t == nil {
		return domain.Null[time.Time](), nil
	}
	return domain.Some(*t), nil
}

func requireTaskID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: taskId is required", domain.ErrInvalidTask)
	}
	return nil
}

// ─── Complete / uncomplete ──────────────────────────────────────────────────

type completeBody struct {
	TaskID        string `json:"taskId"`
	IsWeeklyBonus bool   `json:"isWeeklyBonus"`
	DurationMet   bool   `json:"durationMet"`
	Count         *int   `json:"count"`
}

type completeResponse struct {
	Success bool `json:"success"`
	*ledger.CompleteResult
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var body completeBody
	if err := decodeBody(r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := requireTaskID(body.TaskID); err != nil {
		writeFailure(w, r, err)
		return
	}

	res, err := s.ledger.Complete(r.Context(), userID, ledger.CompleteRequest{
		TaskID:        body.TaskID,
		Count:         body.Count,
		IsWeeklyBonus: body.IsWeeklyBonus,
		DurationMet:   body.DurationMet,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{Success: true, CompleteResult: res})
}

type uncompleteBody struct {
	TaskID string `json:"taskId"`
	Count  *int   `json:"count"`
}

type uncompleteResponse struct {
	Success bool `json:"success"`
	*ledger.UncompleteResult
}

func (s *Server) handleUncomplete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var body uncompleteBody
	if err := decodeBody(r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := requireTaskID(body.TaskID); err != nil {
		writeFailure(w, r, err)
		return
	}

	res, err := s.ledger.Uncomplete(r.Context(), userID, ledger.UncompleteRequest{TaskID: body.TaskID, Count: body.Count})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uncompleteResponse{Success: true, UncompleteResult: res})
}

// ─── Create / update / delete ───────────────────────────────────────────────

type createBody struct {
	Title             string          `json:"title"`
	Type              string          `json:"type"`
	Tier              string          `json:"tier"`
	Category          string          `json:"category"`
	ScheduledDate     *string         `json:"scheduledDate"`
	PlannedDate       *string         `json:"plannedDate"`
	Deadline          *string         `json:"deadline"`
	DeadlineTime      *string         `json:"deadlineTime"`
	AllocatedDuration *int            `json:"allocatedDuration"`
	Frequency         int             `json:"frequency"`
	RepeatDays        domain.Weekdays `json:"repeatDays"`
}

func (b createBody) request() (ledger.CreateRequest, error) {
	req := ledger.CreateRequest{
		Title:             b.Title,
		Category:          b.Category,
		AllocatedDuration: b.AllocatedDuration,
		Frequency:         b.Frequency,
		RepeatDays:        b.RepeatDays,
	}
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Type) == "" {
		return req, fmt.Errorf("%w: title and type are required", domain.ErrInvalidTask)
	}

	var err error
	if req.Type, err = domain.ParseTaskType(b.Type); err != nil {
		return req, err
	}
	if strings.TrimSpace(b.Tier) != "" {
		if req.Tier, err = domain.ParseTier(b.Tier); err != nil {
			return req, err
		}
	}

	date := b.ScheduledDate
	if date == nil {
		date = b.PlannedDate
	}
	if req.ScheduledDate, err = optTime(date); err != nil {
		return req, err
	}
	if req.Deadline, err = optTime(b.Deadline); err != nil {
		return req, err
	}
	if req.DeadlineTime, err = optTime(b.DeadlineTime); err != nil {
		return req, err
	}
	return req, nil
}

type taskResponse struct {
	Success bool         `json:"success"`
	Task    *domain.Task `json:"task"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var body createBody
	if err := decodeBody(r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	req, err := body.request()
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	task, err := s.ledger.Create(r.Context(), userID, req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: task})
}

type updateBody struct {
	TaskID            string                  `json:"taskId"`
	Title             *string                 `json:"title"`
	Type              *string                 `json:"type"`
	Tier              *string                 `json:"tier"`
	Category          *string                 `json:"category"`
	ScheduledDate     domain.Nullable[string] `json:"scheduledDate"`
	PlannedDate       domain.Nullable[string] `json:"plannedDate"`
	Deadline          domain.Nullable[string] `json:"deadline"`
	DeadlineTime      domain.Nullable[string] `json:"deadlineTime"`
	AllocatedDuration domain.Nullable[int]    `json:"allocatedDuration"`
	Frequency         *int                    `json:"frequency"`
	RepeatDays        *domain.Weekdays        `json:"repeatDays"`
}

func (b updateBody) request() (ledger.UpdateRequest, error) {
	req := ledger.UpdateRequest{
		TaskID:            b.TaskID,
		Title:             b.Title,
		Category:          b.Category,
		AllocatedDuration: b.AllocatedDuration,
		Frequency:         b.Frequency,
		RepeatDays:        b.RepeatDays,
	}
	if err := requireTaskID(b.TaskID); err != nil {
		return req, err
	}
	// Empty strings mean "leave unchanged" for enum fields.
	if b.Type != nil && strings.TrimSpace(*b.Type) != "" {
		t, err := domain.ParseTaskType(*b.Type)
		if err != nil {
			return req, err
		}
		req.Type = &t
	}
	if b.Tier != nil && strings.TrimSpace(*b.Tier) != "" {
		t, err := domain.ParseTier(*b.Tier)
		if err != nil {
			return req, err
		}
		req.Tier = &t
	}

	var err error
	date := b.ScheduledDate
	if !date.Set {
		date = b.PlannedDate
	}
	if req.ScheduledDate, err = nullableTime(date); err != nil {
		return req, err
	}
	if req.Deadline, err = nullableTime(b.Deadline); err != nil {
		return req, err
	}
	if req.DeadlineTime, err = nullableTime(b.DeadlineTime); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var body updateBody
	if err := decodeBody(r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	req, err := body.request()
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	task, err := s.ledger.Update(r.Context(), userID, req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: task})
}

type deleteBody struct {
	TaskID string `json:"taskId"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	body := deleteBody{TaskID: r.URL.Query().Get("taskId")}
	if body.TaskID == "" {
		if err := decodeBody(r, &body); err != nil {
			writeFailure(w, r, err)
			return
		}
	}
	if err := requireTaskID(body.TaskID); err != nil {
		writeFailure(w, r, err)
		return
	}

	res, err := s.ledger.Delete(r.Context(), userID, body.TaskID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "xpRemoved": res.XPRemoved})
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	q := r.URL.Query()

	query := ledger.TaskQuery{Search: strings.TrimSpace(q.Get("q"))}
	if v := q.Get("type"); v != "" {
		t, err := domain.ParseTaskType(v)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		query.Type = &t
	}
	if v := q.Get("date"); v != "" {
		d, err := parseTime(v)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		query.Date = &d
	}

	tasks, err := s.ledger.ListTasks(r.Context(), userID, query)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tasks": tasks})
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func (s *Server) handleDayLogs(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	logs, err := s.ledger.DayLogs(r.Context(), userID, queryLimit(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if logs == nil {
		logs = []ledger.DayLogView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "dayLogs": logs})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sum, err := s.ledger.Summary(r.Context(), userID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "summary": sum})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	entries, err := s.ledger.History(r.Context(), userID, queryLimit(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "entries": entries})
}
