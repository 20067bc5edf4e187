package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/maplify-tech/whiteboard/internal/infrastructure/memory"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
)

func init() { helpers.PasswordCost = bcrypt.MinCost }

type userFixture struct {
	svc      *UserService
	sessions *memory.SessionStore
	pub      *fakePublisher
}

func newUserFixture() userFixture {
	sessions := memory.NewSessionStore()
	pub := &fakePublisher{}
	svc := NewUserService(
		memory.NewUserRepository(),
		sessions,
		helpers.NewJWTManager("test-secret", time.Hour),
		NewNotifier(pub, testConfig(), helpers.DiscardLogger()),
		helpers.DiscardLogger(),
	)
	return userFixture{svc: svc, sessions: sessions, pub: pub}
}

func TestUserService_RegisterAuthenticateMe(t *testing.T) {
	fx := newUserFixture()
	ctx := context.Background()

	res, err := fx.svc.Register(ctx, RegisterInput{Email: "  Ada@Example.com ", Password: "correct horse", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	p, err := fx.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)

	me, err := fx.svc.Me(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	require.Len(t, fx.pub.jobs, 1)
	assert.Equal(t, "welcome", fx.pub.jobs[0].Template)
	assert.Equal(t, "ada@example.com", fx.pub.jobs[0].To)
}

func TestUserService_RegisterErrors(t *testing.T) {
	fx := newUserFixture()
	ctx := context.Background()
	_, err := fx.svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = fx.svc.Register(ctx, RegisterInput{Email: "ADA@example.com", Password: "another one"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = fx.svc.Register(ctx, RegisterInput{Email: "nope", Password: "short"})
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "password")
}

func TestUserService_RegisterSurvivesQueueFailure(t *testing.T) {
	fx := newUserFixture()
	fx.pub.err = errors.New("amqp closed")

	res, err := fx.svc.Register(context.Background(), RegisterInput{Email: "b@example.com", Password: "password1"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestUserService_Login(t *testing.T) {
	fx := newUserFixture()
	ctx := context.Background()
	_, err := fx.svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	res, err := fx.svc.Login(ctx, LoginInput{Email: "Ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = fx.svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = fx.svc.Login(ctx, LoginInput{Email: "", Password: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_AuthenticateFailuresLookIdentical(t *testing.T) {
	fx := newUserFixture()
	ctx := context.Background()
	res, err := fx.svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	foreign, _, err := helpers.NewJWTManager("other-secret", time.Hour).GenerateToken(res.User.ID, "sid")
	require.NoError(t, err)
	orphan, _, err := fx.svc.JWT.GenerateToken(res.User.ID, "no-such-session")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"foreign secret": foreign,
		"no session":     orphan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.Authenticate(ctx, token)
			assert.Equal(t, ErrUnauthorized, err)
		})
	}
}

func TestUserService_SessionExpiryAndLogout(t *testing.T) {
	fx := newUserFixture()
	ctx := context.Background()
	res, err := fx.svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	fx.sessions.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = fx.svc.Authenticate(ctx, res.Token)
	assert.Equal(t, ErrUnauthorized, err)

	fx.sessions.Now = time.Now
	again, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	p, err := fx.svc.Authenticate(ctx, again.Token)
	require.NoError(t, err)

	require.NoError(t, fx.svc.Logout(ctx, *p))
	_, err = fx.svc.Authenticate(ctx, again.Token)
	assert.Equal(t, ErrUnauthorized, err)
}
