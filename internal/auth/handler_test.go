package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/principal"
	"github.com/clinsim/clinsim/internal/shared"
)

type stubRepo struct {
	accounts map[string]Account
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (Account, error) {
	account, ok := s.accounts[email]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return account, nil
}

func newLoginFixture(t *testing.T) (*Handler, *principal.TokenCodec, *audit.Recorder) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{accounts: map[string]Account{
		"ana@clinsim.test": {ID: "u1", Email: "ana@clinsim.test", PasswordHash: string(hash), Active: true},
		"off@clinsim.test": {ID: "u2", Email: "off@clinsim.test", PasswordHash: string(hash), Active: false},
	}}
	recorder := audit.NewRecorder()
	codec := principal.NewTokenCodec("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(repo, codec, recorder, logger)
	return NewHandler(logger, service), codec, recorder
}

func postLogin(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.MountRoutes(r)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	h, codec, recorder := newLoginFixture(t)

	rec := postLogin(t, h, `{"email":"ana@clinsim.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, int64(3600), resp.ExpiresIn)

	claims, authErr := codec.Verify(resp.Token)
	require.Nil(t, authErr)
	require.Equal(t, "u1", claims.SubjectID)

	events := recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, audit.KindLogin, events[0].Kind)
	require.Equal(t, "u1", events[0].SubjectID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h, _, recorder := newLoginFixture(t)

	rec := postLogin(t, h, `{"email":"ana@clinsim.test","password":"wrong-horse-xx"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])

	events := recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, audit.KindLoginFailed, events[0].Kind)
	require.Equal(t, audit.ReasonBadCredentials, events[0].Reason)
}

func TestLoginRejectsUnknownEmailWithSameStatus(t *testing.T) {
	h, _, _ := newLoginFixture(t)
	rec := postLogin(t, h, `{"email":"ghost@clinsim.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	h, _, recorder := newLoginFixture(t)
	rec := postLogin(t, h, `{"email":"off@clinsim.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	events := recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, audit.ReasonUserInactive, events[0].Reason)
}

func TestLoginValidatesRequestBody(t *testing.T) {
	h, _, _ := newLoginFixture(t)

	require.Equal(t, http.StatusBadRequest, postLogin(t, h, `not json`).Code)
	require.Equal(t, http.StatusBadRequest, postLogin(t, h, `{"email":"not-an-email","password":"correct-horse"}`).Code)
	require.Equal(t, http.StatusBadRequest, postLogin(t, h, `{"email":"ana@clinsim.test","password":"short"}`).Code)
}
