// Package export produces the weekly CSV report of task activity.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/store"
)

// reportWindow is how far back the weekly report reaches.
const reportWindow = 7 * 24 * time.Hour

// timestampLayout is the human-readable timestamp format used in report
// cells, rendered in the configured display timezone.
const timestampLayout = "2006-01-02 15:04"

var csvHeader = []string{
	"id", "title", "url", "assignee_username", "status",
	"level", "est_hours", "deadline", "created_at", "updated_at",
}

// Exporter renders task reports as CSV.
type Exporter struct {
	tasks    store.TaskStore
	users    store.UserStore
	location *time.Location
	timeFunc func() time.Time
}

// NewExporter creates an Exporter. Timestamps in the report are rendered
// in the given location.
func NewExporter(tasks store.TaskStore, users store.UserStore, location *time.Location) *Exporter {
	if location == nil {
		location = time.UTC
	}
	return &Exporter{
		tasks:    tasks,
		users:    users,
		location: location,
		timeFunc: time.Now,
	}
}

// WeeklyCSV writes a CSV report of all tasks created in the last seven
// days, newest first, to w. Returns the number of data rows written.
func (e *Exporter) WeeklyCSV(ctx context.Context, w io.Writer) (int, error) {
	since := e.timeFunc().UTC().Add(-reportWindow)

	tasks, err := e.tasks.ListCreatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("listing tasks for report: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("writing report header: %w", err)
	}

	usernames := make(map[int64]string)
	for _, task := range tasks {
		record := []string{
			strconv.FormatInt(task.ID, 10),
			task.Title,
			task.URL,
			e.assigneeUsername(ctx, usernames, task),
			string(task.Status),
			task.Level,
			strconv.FormatFloat(task.EstHours, 'f', -1, 64),
			e.humanize(task.Deadline),
			e.humanize(&task.CreatedAt),
			e.humanize(&task.UpdatedAt),
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("writing report row for task %d: %w", task.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flushing report: %w", err)
	}
	return len(tasks), nil
}

// assigneeUsername resolves the assignee's username, caching lookups for
// the duration of one report. Unassigned tasks and unknown users render
// as an empty cell.
func (e *Exporter) assigneeUsername(ctx context.Context, cache map[int64]string, task *domain.Task) string {
	if task.AssigneeID == nil {
		return ""
	}

	id := *task.AssigneeID
	if name, ok := cache[id]; ok {
		return name
	}

	user, err := e.users.GetByID(ctx, id)
	if err != nil {
		cache[id] = ""
		return ""
	}
	cache[id] = user.Username
	return user.Username
}

func (e *Exporter) humanize(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(e.location).Format(timestampLayout)
}
