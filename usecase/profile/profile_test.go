package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskyard/backend/domain"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *domain.User) error {
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func TestUseCase_UpdateProfile(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: "old@example.com", DisplayName: "Old Name", IsStaff: true},
	}}
	uc := New(repo, nil)

	updated, err := uc.UpdateProfile(context.Background(), "u1", "new@example.com", "New Name")

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "New Name", updated.DisplayName)
	// administrative flags survive a profile update untouched
	assert.True(t, updated.IsStaff)

	stored := repo.users["u1"]
	assert.Equal(t, "new@example.com", stored.Email)
}

func TestUseCase_UpdateProfile_EmptyFieldsKeepCurrent(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: "keep@example.com", DisplayName: "Keep"},
	}}
	uc := New(repo, nil)

	updated, err := uc.UpdateProfile(context.Background(), "u1", "", "")

	require.NoError(t, err)
	assert.Equal(t, "keep@example.com", updated.Email)
	assert.Equal(t, "Keep", updated.DisplayName)
}

func TestUseCase_UpdateProfile_UnknownUser(t *testing.T) {
	uc := New(&fakeUserRepo{users: map[string]*domain.User{}}, nil)

	_, err := uc.UpdateProfile(context.Background(), "ghost", "a@example.com", "A")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUseCase_GetProfile(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	uc := New(repo, nil)

	user, err := uc.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", user.Email)
}
