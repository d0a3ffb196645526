package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskrelay/internal/api"
	apiMiddleware "github.com/phrazzld/taskrelay/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(
		app.taskService,
		app.delegationService,
		app.displayLocation(),
		app.logger,
	)
	reportHandler := api.NewReportHandler(app.exporter, app.logger)

	requireActor := apiMiddleware.ActorMiddleware(app.userService)
	requireManager := apiMiddleware.RequireManager(app.userService)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireActor)

			// Executor-facing endpoints
			r.Get("/tasks/open", taskHandler.ListOpenTasks)
			r.Get("/tasks/direct", taskHandler.ListDirectTasks)
			r.Get("/tasks/mine", taskHandler.ListMyTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Post("/tasks/{id}/claim", taskHandler.ClaimTask)
			r.Post("/tasks/{id}/drop", taskHandler.DropTask)
			r.Post("/tasks/{id}/submit", taskHandler.SubmitTask)
			r.Post("/tokens/redeem", taskHandler.RedeemToken)

			// Manager-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(requireManager)

				r.Post("/tasks", taskHandler.CreateTask)
				r.Get("/tasks", taskHandler.ListTasks)
				r.Get("/tasks/search", taskHandler.SearchTasks)
				r.Get("/tasks/{id}/events", taskHandler.ListTaskEvents)
				r.Post("/tasks/{id}/accept", taskHandler.AcceptTask)
				r.Post("/tasks/{id}/return", taskHandler.ReturnTask)
				r.Post("/tasks/{id}/token", taskHandler.IssueToken)
				r.Get("/reports/weekly", reportHandler.WeeklyReport)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
