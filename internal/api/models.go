package api

import (
	"time"

	"github.com/phrazzld/taskrelay/internal/domain"
)

// CreateTaskRequest represents the request body for publishing a task.
type CreateTaskRequest struct {
	Title            string   `json:"title"             validate:"required"`
	URL              string   `json:"url"               validate:"required,url"`
	Level            string   `json:"level,omitempty"`
	EstHours         float64  `json:"est_hours,omitempty"  validate:"gte=0"`
	PublishMode      string   `json:"publish_mode"      validate:"required,oneof=open direct"`
	Deadline         string   `json:"deadline,omitempty"`
	AllowedUsernames []string `json:"allowed_usernames,omitempty"`
}

// RedeemTokenRequest represents the request body for redeeming a
// delegation token.
type RedeemTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse carries an issued delegation token.
type TokenResponse struct {
	Token string `json:"token"`
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	URL              string     `json:"url"`
	Level            string     `json:"level,omitempty"`
	EstHours         float64    `json:"est_hours,omitempty"`
	PublishMode      string     `json:"publish_mode"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Status           string     `json:"status"`
	AssigneeID       *int64     `json:"assignee_id,omitempty"`
	CreatedBy        int64      `json:"created_by"`
	AllowedUsernames []string   `json:"allowed_usernames,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EventResponse represents one audit log entry.
type EventResponse struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	Meta       string    `json:"meta,omitempty"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:               task.ID,
		Title:            task.Title,
		URL:              task.URL,
		Level:            task.Level,
		EstHours:         task.EstHours,
		PublishMode:      string(task.PublishMode),
		Deadline:         task.Deadline,
		Status:           string(task.Status),
		AssigneeID:       task.AssigneeID,
		CreatedBy:        task.CreatedBy,
		AllowedUsernames: task.AllowedUsernames,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskToResponse(task))
	}
	return out
}

func eventsToResponse(events []*domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, EventResponse{
			ID:         event.ID.String(),
			OccurredAt: event.OccurredAt,
			ActorID:    event.ActorID,
			Action:     string(event.Action),
			Meta:       event.Meta,
		})
	}
	return out
}
