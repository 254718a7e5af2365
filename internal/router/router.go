package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskyard/backend/api/handler"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Health  *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, auth Middleware) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)

	// Protected routes
	r.GET("/api/v1/profile", auth(handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", auth(handlers.Profile.UpdateProfile))

	r.GET("/api/v1/lists/{id}/tasks", auth(handlers.Task.ListTasks))

	// Single task view: GET renders current state, POST dispatches exactly
	// one of add_comment / add_edit_task / toggle_done / merge_task_into.
	r.GET("/api/v1/tasks/{id}", auth(handlers.Task.TaskDetail))
	r.POST("/api/v1/tasks/{id}", auth(handlers.Task.TaskAction))

	r.GET("/api/v1/tasks/{id}/comments/{cid}/attachments/{name}", auth(handlers.Task.DownloadAttachment))

	return r
}
