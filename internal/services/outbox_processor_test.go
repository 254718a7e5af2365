package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/internal/infrastructure/outbox"
)

type fakeMailer struct {
	fail  bool
	sent  []string
	lists [][]string
}

func (m *fakeMailer) Send(_ context.Context, subject, _ string, recipients []string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, subject)
	m.lists = append(m.lists, recipients)
	return nil
}

func setupProcessor(t *testing.T, mailer *fakeMailer, maxRetries int) (*OutboxProcessor, *outbox.Store) {
	t.Helper()
	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), "outbox")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	processor := NewOutboxProcessor(store, mailer, nil, ProcessorConfig{
		Interval:   time.Minute,
		BatchSize:  10,
		MaxRetries: maxRetries,
		Retention:  24 * time.Hour,
	})
	return processor, store
}

func TestOutboxProcessor_DispatchInline(t *testing.T) {
	mailer := &fakeMailer{}
	processor, _ := setupProcessor(t, mailer, 3)

	err := processor.Dispatch(context.Background(), outbox.Message{
		Subject:    "hello",
		Recipients: []string{"a@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, mailer.sent)
	assert.Zero(t, processor.Size())
}

func TestOutboxProcessor_DispatchBuffersOnFailure(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	processor, _ := setupProcessor(t, mailer, 3)

	err := processor.Dispatch(context.Background(), outbox.Message{
		Subject:    "hello",
		Recipients: []string{"a@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, processor.Size())
}

func TestOutboxProcessor_DrainDelivers(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	processor, _ := setupProcessor(t, mailer, 3)

	require.NoError(t, processor.Dispatch(context.Background(), outbox.Message{
		Subject:    "retry me",
		Recipients: []string{"a@example.com"},
	}))
	require.Equal(t, 1, processor.Size())

	mailer.fail = false
	require.NoError(t, processor.Drain(context.Background()))

	assert.Zero(t, processor.Size())
	assert.Equal(t, []string{"retry me"}, mailer.sent)
}

func TestOutboxProcessor_DrainDropsAfterMaxRetries(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	processor, store := setupProcessor(t, mailer, 2)

	require.NoError(t, processor.Dispatch(context.Background(), outbox.Message{
		Subject:    "doomed",
		Recipients: []string{"a@example.com"},
	}))

	// first drain requeues exactly one copy with a bumped retry count
	require.NoError(t, processor.Drain(context.Background()))
	assert.Equal(t, 1, processor.Size())

	pending, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Retries)
	assert.Equal(t, "doomed", pending[0].Subject)

	// second drain hits the retry cap and drops the message
	require.NoError(t, processor.Drain(context.Background()))
	assert.Zero(t, processor.Size())
}

func TestNotifyBridge_CommentPosted(t *testing.T) {
	mailer := &fakeMailer{}
	processor, _ := setupProcessor(t, mailer, 3)
	bridge := NewNotifyBridge(processor)

	task := &domain.Task{ID: "t1", Title: "Fix login"}
	comment := &domain.Comment{ID: "c1", TaskID: "t1", Body: "done?"}
	recipients := []domain.User{
		{ID: "u1", Email: "one@example.com"},
		{ID: "u2"}, // no address, skipped
		{ID: "u3", Email: "three@example.com"},
	}

	require.NoError(t, bridge.CommentPosted(context.Background(), task, comment, recipients))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, `New comment posted on task "Fix login"`, mailer.sent[0])
	assert.Equal(t, []string{"one@example.com", "three@example.com"}, mailer.lists[0])
}

func TestNotifyBridge_NoAddressableRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	processor, _ := setupProcessor(t, mailer, 3)
	bridge := NewNotifyBridge(processor)

	err := bridge.CommentPosted(context.Background(),
		&domain.Task{ID: "t1"}, &domain.Comment{ID: "c1"}, []domain.User{{ID: "u1"}})

	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
	assert.Zero(t, processor.Size())
}
