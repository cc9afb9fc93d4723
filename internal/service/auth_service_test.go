package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fviete/attendance-api/internal/models"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
)

type mockUserRepo struct {
	userByEmail *models.User
	emailTaken  bool
	dniTaken    bool
	created     []*models.User
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emailTaken, nil
}

func (m *mockUserRepo) ExistsByDNI(ctx context.Context, dni string) (bool, error) {
	return m.dniTaken, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-1"
	m.created = append(m.created, user)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour, Issuer: "attendance-api"}
}

func TestRegisterIssuesToken(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		FirstName: "Maria",
		LastName:  "Lopez",
		DNI:       "87654321",
		Email:     "maria@example.com",
		Password:  "supersecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "maria@example.com", res.User.Email)
	require.Len(t, repo.created, 1)
	assert.NotEqual(t, "supersecret", repo.created[0].PasswordHash)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Maria Lopez", claims.FullName)
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{emailTaken: true}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FirstName: "Maria", LastName: "Lopez", DNI: "87654321",
		Email: "maria@example.com", Password: "supersecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterValidatesDNI(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FirstName: "Maria", LastName: "Lopez", DNI: "12AB",
		Email: "maria@example.com", Password: "supersecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &mockUserRepo{userByEmail: &models.User{
		ID: "user-1", Email: "maria@example.com", FirstName: "Maria", LastName: "Lopez",
		PasswordHash: string(hash),
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "maria@example.com", Password: "supersecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &mockUserRepo{userByEmail: &models.User{
		ID: "user-1", Email: "maria@example.com", PasswordHash: string(hash),
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email: "maria@example.com", Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "nobody@example.com", Password: "supersecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, validator.New(), zap.NewNop(), testAuthConfig())
	other := NewAuthService(&mockUserRepo{}, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret: "different", TokenExpiry: time.Hour, Issuer: "attendance-api",
	})

	res, err := other.Register(context.Background(), models.RegisterRequest{
		FirstName: "Maria", LastName: "Lopez", DNI: "87654321",
		Email: "maria@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
