package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()

	u, err := svc.User.Create(ctx, &user.CreateUserRequest{
		Username: "elettescar",
		Email:    " Elettescar@Taiga.Demo ",
		FullName: "Martina Eaton",
		Password: "123123",
	})
	require.NoError(t, err)
	assert.Equal(t, "elettescar@taiga.demo", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "123123", u.PasswordHash)

	_, err = svc.User.Create(ctx, &user.CreateUserRequest{Username: "elettescar", Email: "other@taiga.demo"})
	assert.ErrorIs(t, err, user.ErrUserAlreadyExists)

	_, err = svc.User.Create(ctx, &user.CreateUserRequest{Username: "other", Email: "ELETTESCAR@taiga.demo"})
	assert.ErrorIs(t, err, user.ErrUserAlreadyExists)

	_, err = svc.User.Create(ctx, &user.CreateUserRequest{Username: " ", Email: "x@taiga.demo"})
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	u := svc.CreateUser(t, "user1")

	byName, err := svc.User.Authenticate(ctx, "user1", "123123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := svc.User.Authenticate(ctx, "user1@taiga.demo", "123123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = svc.User.Authenticate(ctx, "user1", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.User.Authenticate(ctx, "nobody", "123123")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestAuthenticateWithoutPassword(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()

	_, err := svc.User.Create(ctx, &user.CreateUserRequest{Username: "sso", Email: "sso@taiga.demo"})
	require.NoError(t, err)

	_, err = svc.User.Authenticate(ctx, "sso", "")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()

	hash, err := user.HashPassword("123123")
	require.NoError(t, err)
	require.NoError(t, svc.User.BulkCreate(ctx, []*user.User{{Username: "gone", Email: "gone@taiga.demo", PasswordHash: hash}}))

	_, err = svc.User.Authenticate(ctx, "gone", "123123")
	assert.ErrorIs(t, err, user.ErrInactiveUser)
}

func TestSearch(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()

	people := []struct{ username, fullName string }{
		{"elettescar", "Martina Eaton"},
		{"electra", "Sonia Moreno"},
		{"danvers", "Elena Riego"},
		{"storm", "Martina Elliott"},
		{"elmarv", "Joanna Marinari"},
	}
	for _, p := range people {
		_, err := svc.User.Create(ctx, &user.CreateUserRequest{
			Username: p.username,
			Email:    p.username + "@taiga.demo",
			FullName: p.fullName,
		})
		require.NoError(t, err)
	}

	found, err := svc.User.Search(ctx, "martina", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "elettescar", found[0].Username)
	assert.Equal(t, "storm", found[1].Username)

	found, err = svc.User.Search(ctx, "EL", 3)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}
