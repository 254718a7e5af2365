package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskyard/backend/api/transport"
	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/pkg/httpcontext"
	"github.com/taskyard/backend/repository"
	accessUC "github.com/taskyard/backend/usecase/access"
	commentUC "github.com/taskyard/backend/usecase/comment"
	taskUC "github.com/taskyard/backend/usecase/task"
)

// FileResolver maps stored attachment names to their on-disk location.
type FileResolver interface {
	Path(storedName string) string
}

// TaskHandler serves the task detail view and its mutation endpoint. The
// mutation endpoint dispatches on exactly one submitted operation field:
// add_comment, add_edit_task, toggle_done or merge_task_into.
type TaskHandler struct {
	baseHandler
	tasks       *taskUC.Service
	comments    *commentUC.Service
	access      *accessUC.Service
	users       repository.UserRepository
	attachments repository.AttachmentRepository
	files       FileResolver
}

func NewTaskHandler(
	tasks *taskUC.Service,
	comments *commentUC.Service,
	access *accessUC.Service,
	users repository.UserRepository,
	attachments repository.AttachmentRepository,
	files FileResolver,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		tasks:       tasks,
		comments:    comments,
		access:      access,
		users:       users,
		attachments: attachments,
		files:       files,
	}
}

// @Summary Task detail
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) TaskDetail(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	task, ok := h.loadTask(ctx, stdCtx)
	if !ok {
		return
	}

	// Read access first: the merged redirect would disclose the target id.
	if err := h.access.AuthorizeRead(stdCtx, task, user); err != nil {
		h.respondError(ctx, err)
		return
	}
	if task.IsMerged() {
		h.respondRedirect(ctx, taskPath(task.MergedInto))
		return
	}

	detail, err := h.buildDetail(stdCtx, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, detail)
}

// @Summary Mutate a task (comment, edit, toggle or merge)
// @Tags tasks
// @Router /api/v1/tasks/{id} [post]
func (h *TaskHandler) TaskAction(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	task, ok := h.loadTask(ctx, stdCtx)
	if !ok {
		return
	}

	// Read access first: the merged redirect would disclose the target id.
	if err := h.access.AuthorizeRead(stdCtx, task, user); err != nil {
		h.respondError(ctx, err)
		return
	}
	if task.IsMerged() {
		h.respondRedirect(ctx, taskPath(task.MergedInto))
		return
	}

	var present []string
	for _, field := range []string{
		transport.FieldAddComment,
		transport.FieldAddEditTask,
		transport.FieldToggleDone,
		transport.FieldMergeTaskInto,
	} {
		if formHas(ctx, field) {
			present = append(present, field)
		}
	}
	if len(present) == 0 {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "no operation submitted", nil))
		return
	}
	if len(present) > 1 {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "only one operation may be submitted per request", nil))
		return
	}

	switch present[0] {
	case transport.FieldAddComment:
		h.handleAddComment(ctx, stdCtx, task, user)
	case transport.FieldAddEditTask:
		h.handleEditTask(ctx, stdCtx, task)
	case transport.FieldToggleDone:
		h.handleToggleDone(ctx, stdCtx, task)
	case transport.FieldMergeTaskInto:
		h.handleMerge(ctx, stdCtx, task, user)
	}
}

// @Summary List tasks in a task list
// @Tags tasks
// @Router /api/v1/lists/{id}/tasks [get]
func (h *TaskHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	listID, _ := ctx.UserValue("id").(string)
	if listID == "" {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "missing list id", nil))
		return
	}

	if !h.access.CanReadList(stdCtx, listID, user) {
		h.respondError(ctx, domain.ErrForbidden)
		return
	}

	filter := repository.TaskFilter{
		ListID: listID,
		Limit:  parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset: parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}
	if raw := string(ctx.QueryArgs().Peek("completed")); raw != "" {
		if completed, err := strconv.ParseBool(raw); err == nil {
			filter.Completed = &completed
		}
	}

	tasks, err := h.tasks.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

func (h *TaskHandler) handleAddComment(ctx *fasthttp.RequestCtx, stdCtx context.Context, task *domain.Task, user *domain.User) {
	uploads, err := collectUploads(ctx)
	if err != nil {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "malformed upload", nil))
		return
	}

	cmt, err := h.comments.AddComment(stdCtx, task, user, formValue(ctx, transport.FieldCommentBody), uploads)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccessWithMessages(ctx, http.StatusCreated, cmt,
		"Comment posted. Notification email sent to thread participants.")
}

func (h *TaskHandler) handleEditTask(ctx *fasthttp.RequestCtx, stdCtx context.Context, task *domain.Task) {
	req := taskUC.EditRequest{
		Title:    formValue(ctx, transport.FieldTitle),
		Note:     task.Note,
		Priority: task.Priority,
		DueDate:  task.DueDate,
	}
	if formHas(ctx, transport.FieldNote) {
		req.Note = formValue(ctx, transport.FieldNote)
	}
	if raw := formValue(ctx, transport.FieldPriority); raw != "" {
		req.Priority = parseInt(raw, task.Priority)
	}
	if raw := formValue(ctx, transport.FieldDueDate); raw != "" {
		due, err := parseDate(raw)
		if err != nil {
			h.respondError(ctx, domain.NewValidationError().Add(transport.FieldDueDate, "invalid date"))
			return
		}
		req.DueDate = &due
	}

	updated, err := h.tasks.Edit(stdCtx, task.ID, req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondRedirect(ctx, listTasksPath(updated.ListID))
}

func (h *TaskHandler) handleToggleDone(ctx *fasthttp.RequestCtx, stdCtx context.Context, task *domain.Task) {
	// The field value carries the desired state, so a resubmitted form is a
	// reported no-op instead of a second flip.
	desired, err := strconv.ParseBool(formValue(ctx, transport.FieldToggleDone))
	if err != nil {
		h.respondError(ctx, domain.NewValidationError().Add(transport.FieldToggleDone, "must be a boolean value"))
		return
	}

	updated, changed, err := h.tasks.SetCompleted(stdCtx, task.ID, desired)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	message := "No change to completion status for task " + updated.ID
	if changed {
		message = "Changed completion status for task " + updated.ID
	}
	h.respondSuccessWithMessages(ctx, http.StatusOK, updated, message)
}

func (h *TaskHandler) handleMerge(ctx *fasthttp.RequestCtx, stdCtx context.Context, task *domain.Task, user *domain.User) {
	targetID := formValue(ctx, transport.FieldMergeTarget)
	if targetID == "" {
		// merge_task_into itself may carry the target id
		targetID = formValue(ctx, transport.FieldMergeTaskInto)
	}

	target, err := h.tasks.Merge(stdCtx, user, task, targetID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondRedirect(ctx, taskPath(target.ID))
}

// @Summary Download a comment attachment
// @Tags tasks
// @Router /api/v1/tasks/{id}/comments/{cid}/attachments/{name} [get]
func (h *TaskHandler) DownloadAttachment(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	task, ok := h.loadTask(ctx, stdCtx)
	if !ok {
		return
	}
	if err := h.access.AuthorizeRead(stdCtx, task, user); err != nil {
		h.respondError(ctx, err)
		return
	}

	commentID, _ := ctx.UserValue("cid").(string)
	name, _ := ctx.UserValue("name").(string)

	attachments, err := h.attachments.ListByComment(stdCtx, commentID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	for _, att := range attachments {
		if att.TaskID != task.ID || att.StoredPath != name {
			continue
		}

		data, err := os.ReadFile(h.files.Path(att.StoredPath))
		if err != nil {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeNotFound, "attachment file missing", err))
			return
		}

		if att.ContentType != "" {
			ctx.Response.Header.SetContentType(att.ContentType)
		}
		ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
		ctx.SetStatusCode(http.StatusOK)
		ctx.SetBody(data)
		return
	}

	h.respondError(ctx, domain.NewError(domain.ErrCodeNotFound, "attachment not found"))
}

func (h *TaskHandler) buildDetail(stdCtx context.Context, task *domain.Task) (*transport.TaskDetail, error) {
	comments, err := h.comments.ListThread(stdCtx, task.ID)
	if err != nil {
		return nil, err
	}
	attachments, err := h.attachments.ListByTask(stdCtx, task.ID)
	if err != nil {
		return nil, err
	}
	return &transport.TaskDetail{
		Task:         task,
		Comments:     comments,
		Attachments:  attachments,
		MergeEnabled: h.tasks.MergeEnabled(),
	}, nil
}

// actor resolves the authenticated user or answers 401.
func (h *TaskHandler) actor(ctx *fasthttp.RequestCtx, stdCtx context.Context) (*domain.User, bool) {
	userID := string(ctx.Request.Header.Peek(httpcontext.UserIDHeader))
	if userID == "" {
		h.respondJSON(ctx, http.StatusUnauthorized,
			transport.NewError(string(domain.ErrCodeUnauthorized), "missing user id", nil))
		return nil, false
	}

	user, err := h.users.GetByID(stdCtx, userID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			h.respondJSON(ctx, http.StatusUnauthorized,
				transport.NewError(string(domain.ErrCodeUnauthorized), "unknown user", nil))
			return nil, false
		}
		h.respondError(ctx, err)
		return nil, false
	}
	return user, true
}

// loadTask resolves the task from the route or answers 404.
func (h *TaskHandler) loadTask(ctx *fasthttp.RequestCtx, stdCtx context.Context) (*domain.Task, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return nil, false
	}

	task, err := h.tasks.Get(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return nil, false
	}
	return task, true
}

func taskPath(id string) string {
	return "/api/v1/tasks/" + id
}

func listTasksPath(listID string) string {
	return "/api/v1/lists/" + listID + "/tasks"
}

// formValue reads a field from a multipart form when present, falling back
// to url-encoded post args.
func formValue(ctx *fasthttp.RequestCtx, key string) string {
	if mf, err := ctx.MultipartForm(); err == nil && mf != nil {
		if vals := mf.Value[key]; len(vals) > 0 {
			return vals[0]
		}
	}
	return string(ctx.PostArgs().Peek(key))
}

func formHas(ctx *fasthttp.RequestCtx, key string) bool {
	if mf, err := ctx.MultipartForm(); err == nil && mf != nil {
		if _, ok := mf.Value[key]; ok {
			return true
		}
	}
	return ctx.PostArgs().Has(key)
}

func collectUploads(ctx *fasthttp.RequestCtx) ([]commentUC.Upload, error) {
	mf, err := ctx.MultipartForm()
	if err != nil || mf == nil {
		return nil, nil
	}

	var uploads []commentUC.Upload
	for _, header := range mf.File[transport.FieldAttachments] {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, commentUC.Upload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
