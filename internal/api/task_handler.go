// Package api provides HTTP handlers for the task lifecycle API.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskrelay/internal/api/shared"
	"github.com/phrazzld/taskrelay/internal/domain"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/service"
)

// TaskHandler handles task lifecycle HTTP requests.
type TaskHandler struct {
	taskService       service.TaskService
	delegationService service.DelegationService
	validator         *validator.Validate
	location          *time.Location
	logger            *slog.Logger
	timeFunc          func() time.Time
}

// NewTaskHandler creates a new TaskHandler. location is the display
// timezone used to interpret absolute deadline input.
func NewTaskHandler(
	taskService service.TaskService,
	delegationService service.DelegationService,
	location *time.Location,
	log *slog.Logger,
) *TaskHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	if location == nil {
		location = time.UTC
	}

	return &TaskHandler{
		taskService:       taskService,
		delegationService: delegationService,
		validator:         validator.New(),
		location:          location,
		logger:            log.With(slog.String("component", "task_handler")),
		timeFunc:          time.Now,
	}
}

// CreateTask handles POST /tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := getActorID(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	deadline, err := ParseDeadline(req.Deadline, h.timeFunc(), h.location)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := h.taskService.Create(r.Context(), service.CreateTaskInput{
		Title:            req.Title,
		URL:              req.URL,
		Level:            req.Level,
		EstHours:         req.EstHours,
		PublishMode:      domain.PublishMode(req.PublishMode),
		Deadline:         deadline,
		AllowedUsernames: req.AllowedUsernames,
		CreatedBy:        actorID,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("task created", slog.Int64("task_id", task.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := h.taskService.Get(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /tasks?status= requests.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.TaskStatusNew
	}

	tasks, err := h.taskService.ListByStatus(r.Context(), status)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// ListOpenTasks handles GET /tasks/open requests: the shared queue of
// claimable work.
func (h *TaskHandler) ListOpenTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListOpen(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// ListDirectTasks handles GET /tasks/direct requests: unclaimed direct
// tasks whose allow-list includes the actor's username.
func (h *TaskHandler) ListDirectTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActorID(w, r); !ok {
		return
	}

	username := shared.GetActorUsername(r.Context())
	tasks, err := h.taskService.ListDirectFor(r.Context(), username)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// ListMyTasks handles GET /tasks/mine requests: the actor's taken tasks.
func (h *TaskHandler) ListMyTasks(w http.ResponseWriter, r *http.Request) {
	actorID, ok := getActorID(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListMine(r.Context(), actorID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// SearchTasks handles GET /tasks/search?q= requests.
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// ListTaskEvents handles GET /tasks/{id}/events requests.
func (h *TaskHandler) ListTaskEvents(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	events, err := h.taskService.Events(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, eventsToResponse(events))
}

// ClaimTask handles POST /tasks/{id}/claim requests.
func (h *TaskHandler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(taskID, actorID int64) (*domain.Task, error) {
		return h.taskService.Claim(r.Context(), taskID, actorID)
	})
}

// DropTask handles POST /tasks/{id}/drop requests.
func (h *TaskHandler) DropTask(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, func(taskID, actorID int64) error {
		return h.taskService.Drop(r.Context(), taskID, actorID)
	})
}

// SubmitTask handles POST /tasks/{id}/submit requests.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, func(taskID, actorID int64) error {
		return h.taskService.Submit(r.Context(), taskID, actorID)
	})
}

// AcceptTask handles POST /tasks/{id}/accept requests.
func (h *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(taskID, actorID int64) (*domain.Task, error) {
		return h.taskService.Accept(r.Context(), taskID, actorID)
	})
}

// ReturnTask handles POST /tasks/{id}/return requests.
func (h *TaskHandler) ReturnTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(taskID, actorID int64) (*domain.Task, error) {
		return h.taskService.Return(r.Context(), taskID, actorID)
	})
}

// IssueToken handles POST /tasks/{id}/token requests: it mints a
// delegation token for handing the task out of band.
func (h *TaskHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	signed, err := h.delegationService.Issue(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, TokenResponse{Token: signed})
}

// RedeemToken handles POST /tokens/redeem requests: it resolves a
// delegation token to its task so the caller can inspect and claim it.
func (h *TaskHandler) RedeemToken(w http.ResponseWriter, r *http.Request) {
	var req RedeemTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Token is required")
		return
	}

	task, err := h.delegationService.Redeem(r.Context(), req.Token)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// transition runs a lifecycle operation that returns the updated task.
func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, op func(taskID, actorID int64) (*domain.Task, error)) {
	actorID, ok := getActorID(w, r)
	if !ok {
		return
	}

	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := op(taskID, actorID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// signal runs a lifecycle operation with no response body.
func (h *TaskHandler) signal(w http.ResponseWriter, r *http.Request, op func(taskID, actorID int64) error) {
	actorID, ok := getActorID(w, r)
	if !ok {
		return
	}

	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := op(taskID, actorID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
