package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
	accessUC "github.com/taskyard/backend/usecase/access"
	commentUC "github.com/taskyard/backend/usecase/comment"
	taskUC "github.com/taskyard/backend/usecase/task"
)

type stubTaskRepo struct {
	tasks map[string]*domain.Task
}

func (r *stubTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *stubTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range r.tasks {
		if filter.ListID == "" || t.ListID == filter.ListID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *stubTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	copied := *task
	r.tasks[task.ID] = &copied
	return task, nil
}

func (r *stubTaskRepo) Update(_ context.Context, task *domain.Task) error {
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *stubTaskRepo) SetCompleted(_ context.Context, id string, done bool) (bool, error) {
	t, ok := r.tasks[id]
	if !ok {
		return false, domain.ErrTaskNotFound
	}
	if t.Completed == done {
		return false, nil
	}
	t.Completed = done
	return true, nil
}

func (r *stubTaskRepo) Merge(_ context.Context, sourceID, targetID string) error {
	r.tasks[sourceID].MergedInto = targetID
	return nil
}

func (r *stubTaskRepo) Delete(_ context.Context, id string) error {
	delete(r.tasks, id)
	return nil
}

type stubListRepo struct {
	members map[string]bool
}

func (r *stubListRepo) GetByID(_ context.Context, id string) (*domain.TaskList, error) {
	return &domain.TaskList{ID: id}, nil
}

func (r *stubListRepo) IsMember(_ context.Context, _, userID string) (bool, error) {
	return r.members[userID], nil
}

type stubUserRepo struct {
	users map[string]*domain.User
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) Upsert(_ context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

type stubCommentRepo struct {
	comments []domain.Comment
}

func (r *stubCommentRepo) ListByTask(_ context.Context, taskID string) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubCommentRepo) CreateWithAttachments(_ context.Context, comment *domain.Comment, _ []domain.Attachment) error {
	if comment.ID == "" {
		comment.ID = "c1"
	}
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *stubCommentRepo) ThreadParticipants(_ context.Context, _ string) ([]domain.User, error) {
	return nil, nil
}

type stubAttachmentRepo struct {
	attachments []domain.Attachment
}

func (r *stubAttachmentRepo) ListByTask(_ context.Context, taskID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range r.attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAttachmentRepo) ListByComment(_ context.Context, commentID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range r.attachments {
		if a.CommentID == commentID {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubFileResolver struct {
	dir string
}

func (s stubFileResolver) Path(storedName string) string {
	return filepath.Join(s.dir, filepath.Base(storedName))
}

type stubBlobStore struct{}

func (stubBlobStore) Save(originalName string, _ []byte) (string, error) {
	return "stored-" + originalName, nil
}

func (stubBlobStore) Remove(_ string) error { return nil }

type taskHandlerFixture struct {
	handler  *TaskHandler
	taskRepo *stubTaskRepo
	attRepo  *stubAttachmentRepo
	filesDir string
}

func setupTaskHandler(t *testing.T) *taskHandlerFixture {
	t.Helper()

	taskRepo := &stubTaskRepo{tasks: map[string]*domain.Task{
		"t1": {ID: "t1", ListID: "l1", Title: "First task"},
		"t2": {ID: "t2", ListID: "l1", Title: "Second task"},
		"t9": {ID: "t9", ListID: "l1", Title: "Old task", MergedInto: "t2"},
	}}
	listRepo := &stubListRepo{members: map[string]bool{"u1": true}}
	userRepo := &stubUserRepo{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: "u1@example.com", Status: "active"},
		"u2": {ID: "u2", Email: "u2@example.com", Status: "active"},
	}}
	attRepo := &stubAttachmentRepo{}
	filesDir := t.TempDir()

	accessSvc := accessUC.New(listRepo, false, nil)
	taskService := taskUC.New(taskRepo, accessSvc, true, nil)
	commentService := commentUC.New(&stubCommentRepo{}, stubBlobStore{}, nil, commentUC.Policy{
		MaxBodyLength:      4000,
		AttachmentsEnabled: true,
	}, nil)

	return &taskHandlerFixture{
		handler: NewTaskHandler(taskService, commentService, accessSvc, userRepo, attRepo,
			stubFileResolver{dir: filesDir}, nil, nil),
		taskRepo: taskRepo,
		attRepo:  attRepo,
		filesDir: filesDir,
	}
}

func postCtx(taskID, userID string, form url.Values) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
	ctx.Request.SetBodyString(form.Encode())
	if userID != "" {
		ctx.Request.Header.Set("X-User-ID", userID)
	}
	ctx.SetUserValue("id", taskID)
	return ctx
}

func decodeEnvelope(t *testing.T, ctx *fasthttp.RequestCtx) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &payload))
	return payload
}

func envelopeMessages(t *testing.T, ctx *fasthttp.RequestCtx) []interface{} {
	t.Helper()
	payload := decodeEnvelope(t, ctx)
	meta, _ := payload["meta"].(map[string]interface{})
	msgs, _ := meta["messages"].([]interface{})
	return msgs
}

func TestTaskAction_RequiresExactlyOneOperation(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t1", "u1", url.Values{})
	f.handler.TaskAction(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = postCtx("t1", "u1", url.Values{
		"toggle_done":   {"true"},
		"add_edit_task": {"1"},
	})
	f.handler.TaskAction(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestTaskAction_ToggleDone(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t1", "u1", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	msgs := envelopeMessages(t, ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Changed completion status for task t1", msgs[0])
	assert.True(t, f.taskRepo.tasks["t1"].Completed)

	// repeating the same desired state is reported as a no-op
	ctx = postCtx("t1", "u1", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	msgs = envelopeMessages(t, ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, "No change to completion status for task t1", msgs[0])
}

func TestTaskAction_EditRedirectsToList(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t1", "u1", url.Values{
		"add_edit_task": {"1"},
		"title":         {"Renamed <b>task</b>"},
		"note":          {"updated note"},
	})
	f.handler.TaskAction(ctx)

	assert.Equal(t, http.StatusSeeOther, ctx.Response.StatusCode())
	assert.Equal(t, "/api/v1/lists/l1/tasks", string(ctx.Response.Header.Peek("Location")))
	assert.Equal(t, "Renamed task", f.taskRepo.tasks["t1"].Title)
	assert.Equal(t, "updated note", f.taskRepo.tasks["t1"].Note)
}

func TestTaskAction_EditValidationFailure(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t1", "u1", url.Values{
		"add_edit_task": {"1"},
		"title":         {""},
	})
	f.handler.TaskAction(ctx)

	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	assert.Equal(t, "First task", f.taskRepo.tasks["t1"].Title)
}

func TestTaskAction_AddComment(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t1", "u1", url.Values{
		"add_comment": {"1"},
		"body":        {"looks good to me"},
	})
	f.handler.TaskAction(ctx)

	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())
	msgs := envelopeMessages(t, ctx)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Comment posted")
}

func TestTaskAction_MergeRedirectsToTarget(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t1", "u1", url.Values{"merge_task_into": {"t2"}})
	f.handler.TaskAction(ctx)

	assert.Equal(t, http.StatusSeeOther, ctx.Response.StatusCode())
	assert.Equal(t, "/api/v1/tasks/t2", string(ctx.Response.Header.Peek("Location")))
	assert.Equal(t, "t2", f.taskRepo.tasks["t1"].MergedInto)
}

func TestTaskAction_ToggleDoneRequiresBoolean(t *testing.T) {
	f := setupTaskHandler(t)

	for _, value := range []string{"", "maybe"} {
		ctx := postCtx("t1", "u1", url.Values{"toggle_done": {value}})
		f.handler.TaskAction(ctx)

		assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
		assert.False(t, f.taskRepo.tasks["t1"].Completed)
	}
}

func TestTaskAction_MergedTaskRedirects(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t9", "u1", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)

	assert.Equal(t, http.StatusSeeOther, ctx.Response.StatusCode())
	assert.Equal(t, "/api/v1/tasks/t2", string(ctx.Response.Header.Peek("Location")))
}

func TestTaskAction_AuthAndAccess(t *testing.T) {
	f := setupTaskHandler(t)

	// no identity
	ctx := postCtx("t1", "", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())

	// unknown identity
	ctx = postCtx("t1", "ghost", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())

	// known identity without list membership
	ctx = postCtx("t1", "u2", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)
	assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
	assert.False(t, f.taskRepo.tasks["t1"].Completed)

	// missing task
	ctx = postCtx("missing", "u1", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
}

func TestTaskDetail(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u1")
	ctx.SetUserValue("id", "t1")
	f.handler.TaskDetail(ctx)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	payload := decodeEnvelope(t, ctx)
	assert.Equal(t, "success", payload["status"])

	data, _ := payload["data"].(map[string]interface{})
	task, _ := data["task"].(map[string]interface{})
	assert.Equal(t, "t1", task["id"])
	assert.Equal(t, true, data["merge_enabled"])
}

func TestTaskDetail_MergedRedirects(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u1")
	ctx.SetUserValue("id", "t9")
	f.handler.TaskDetail(ctx)

	assert.Equal(t, http.StatusSeeOther, ctx.Response.StatusCode())
	assert.Equal(t, "/api/v1/tasks/t2", string(ctx.Response.Header.Peek("Location")))
}

func TestTaskDetail_MergedTaskForbiddenForNonMember(t *testing.T) {
	f := setupTaskHandler(t)

	// a user without read access gets 403, never the merge target
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u2")
	ctx.SetUserValue("id", "t9")
	f.handler.TaskDetail(ctx)

	assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
	assert.Empty(t, ctx.Response.Header.Peek("Location"))
}

func TestTaskAction_MergedTaskForbiddenForNonMember(t *testing.T) {
	f := setupTaskHandler(t)

	ctx := postCtx("t9", "u2", url.Values{"toggle_done": {"true"}})
	f.handler.TaskAction(ctx)

	assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
	assert.Empty(t, ctx.Response.Header.Peek("Location"))
}

func TestDownloadAttachment(t *testing.T) {
	f := setupTaskHandler(t)

	stored := "deadbeef.txt"
	require.NoError(t, os.WriteFile(filepath.Join(f.filesDir, stored), []byte("attachment body"), 0o644))
	f.attRepo.attachments = []domain.Attachment{{
		ID:          "a1",
		CommentID:   "c1",
		TaskID:      "t1",
		FileName:    "notes.txt",
		StoredPath:  stored,
		ContentType: "text/plain",
	}}

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u1")
	ctx.SetUserValue("id", "t1")
	ctx.SetUserValue("cid", "c1")
	ctx.SetUserValue("name", stored)
	f.handler.DownloadAttachment(ctx)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "attachment body", string(ctx.Response.Body()))
	assert.Equal(t, `attachment; filename="notes.txt"`, string(ctx.Response.Header.Peek("Content-Disposition")))
	assert.Equal(t, "text/plain", string(ctx.Response.Header.ContentType()))
}

func TestDownloadAttachment_Rejections(t *testing.T) {
	f := setupTaskHandler(t)
	f.attRepo.attachments = []domain.Attachment{{
		ID:         "a1",
		CommentID:  "c1",
		TaskID:     "t2",
		FileName:   "other.txt",
		StoredPath: "cafebabe.txt",
	}}

	// unknown stored name under the comment
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u1")
	ctx.SetUserValue("id", "t1")
	ctx.SetUserValue("cid", "c1")
	ctx.SetUserValue("name", "missing.txt")
	f.handler.DownloadAttachment(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	// attachment belongs to a different task than the route names
	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u1")
	ctx.SetUserValue("id", "t1")
	ctx.SetUserValue("cid", "c1")
	ctx.SetUserValue("name", "cafebabe.txt")
	f.handler.DownloadAttachment(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	// no read access on the task
	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("X-User-ID", "u2")
	ctx.SetUserValue("id", "t1")
	ctx.SetUserValue("cid", "c1")
	ctx.SetUserValue("name", "cafebabe.txt")
	f.handler.DownloadAttachment(ctx)
	assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
}
