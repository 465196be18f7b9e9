package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"slotswapper-backend/internal/apperr"
	"slotswapper-backend/internal/store"
	"slotswapper-backend/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(testutil.NewStore(t), NewTokens("test-secret", time.Hour), testutil.Logger())
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, err := tokens.Issue(42)
	require.NoError(t, err)

	id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = NewTokens("other", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokensRejectOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Parse(unsigned)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSignupAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.Signup(ctx, " Alice ", "Alice@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", session.User.Name)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, "bearer", session.TokenType)
	assert.NotEqual(t, "secret123", session.User.PasswordHash)

	id, err := svc.Authenticate(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id)

	_, err = svc.Signup(ctx, "Other", "alice@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Email already registered", apperr.Message(err))

	loggedIn, err := svc.Login(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, loggedIn.User.ID)

	_, err = svc.Login(ctx, "alice@example.com", "nope")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	me, err := svc.Me(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.Name)

	_, err = svc.Me(ctx, session.User.ID+100)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "  ", "a@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Signup(ctx, "A", "a@example.com", "short")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Signup(ctx, "A", "   ", "secret123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens("secret", time.Hour)
	svc := &Service{tokens: tokens}

	r := gin.New()
	r.GET("/who", Middleware(svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	signed, err := tokens.Issue(7)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + signed, http.StatusOK},
		{"lowercase scheme", "bearer " + signed, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + signed, http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
			} else {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) InTx(context.Context, func(tx store.Tx) error) error { return f.err }

func TestSignupOnlyReportsDuplicatesAsTaken(t *testing.T) {
	newSvc := func(err error) *Service {
		svc := NewService(failingStore{err: err}, NewTokens("test-secret", time.Hour), testutil.Logger())
		svc.hashCost = bcrypt.MinCost
		return svc
	}

	duplicate := fmt.Errorf("%w: %w", store.ErrDuplicate, apperr.Conflict("record already exists"))
	_, err := newSvc(duplicate).Signup(context.Background(), "Alice", "alice@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Email already registered", apperr.Message(err))

	serialization := apperr.Conflict("concurrent update, please retry")
	_, err = newSvc(serialization).Signup(context.Background(), "Alice", "alice@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NotErrorIs(t, err, apperr.ErrValidation)
}
