package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/internal/account"
	"collabcore/internal/alliance"
	"collabcore/internal/notification"
	"collabcore/internal/reputation"
	id "collabcore/pkg/domain"
	"collabcore/pkg/testutil"
)

type env struct {
	router    chi.Router
	requester id.AccountID
	receiver  id.AccountID
	service   *alliance.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	accounts := account.NewInMemoryStore()
	rep := reputation.NewService(reputation.NewInMemoryEntryStore(), accounts, logger)
	svc := alliance.NewService(alliance.NewInMemoryStore(), rep, notification.NewMemorySink(), logger)

	requester := id.NewAccountID()
	receiver := id.NewAccountID()
	for _, accountID := range []id.AccountID{requester, receiver} {
		require.NoError(t, accounts.Create(context.Background(), account.Account{
			ID: accountID, Role: account.RoleTalent, ReputationScore: account.DefaultScore,
		}))
	}

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return &env{router: r, requester: requester, receiver: receiver, service: svc}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) pending(t *testing.T) alliance.Alliance {
	t.Helper()
	a, err := e.service.Request(context.Background(), e.requester, e.receiver)
	require.NoError(t, err)
	return a
}

func TestHandleRequest(t *testing.T) {
	t.Run("creates pending alliance", func(t *testing.T) {
		e := newEnv(t)
		req := testutil.WithAccount(
			testutil.NewJSONRequest(t, http.MethodPost, "/alliances", RequestAllianceRequest{ReceiverID: e.receiver.String()}),
			e.requester.String(), "talent")
		rec := e.do(req)

		testutil.AssertStatus(t, rec, http.StatusCreated)
		body := testutil.UnmarshalResponse[AllianceResponse](t, rec)
		assert.Equal(t, e.requester.String(), body.RequesterID)
		assert.Equal(t, e.receiver.String(), body.ReceiverID)
		assert.Equal(t, "pending", body.Status)
	})

	t.Run("missing receiver_id", func(t *testing.T) {
		e := newEnv(t)
		req := testutil.WithAccount(
			testutil.NewJSONRequest(t, http.MethodPost, "/alliances", RequestAllianceRequest{}),
			e.requester.String(), "talent")
		testutil.AssertStatusAndError(t, e.do(req), http.StatusBadRequest, "invalid_input")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		e := newEnv(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/alliances", RequestAllianceRequest{ReceiverID: e.receiver.String()})
		testutil.AssertStatusAndError(t, e.do(req), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("duplicate pair is conflict with current state", func(t *testing.T) {
		e := newEnv(t)
		e.pending(t)

		req := testutil.WithAccount(
			testutil.NewJSONRequest(t, http.MethodPost, "/alliances", RequestAllianceRequest{ReceiverID: e.receiver.String()}),
			e.requester.String(), "talent")
		rec := e.do(req)

		testutil.AssertStatusAndError(t, rec, http.StatusConflict, "conflict")
		body := testutil.UnmarshalResponse[map[string]string](t, rec)
		assert.Equal(t, "pending", (*body)["current_state"])
	})
}

func TestHandleAccept(t *testing.T) {
	t.Run("receiver accepts", func(t *testing.T) {
		e := newEnv(t)
		a := e.pending(t)

		req := testutil.WithAccount(
			testutil.NewRequest(t, http.MethodPost, "/alliances/"+a.ID.String()+"/accept"),
			e.receiver.String(), "talent")
		rec := e.do(req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		body := testutil.UnmarshalResponse[AllianceResponse](t, rec)
		assert.Equal(t, "accepted", body.Status)
	})

	t.Run("requester cannot accept", func(t *testing.T) {
		e := newEnv(t)
		a := e.pending(t)

		req := testutil.WithAccount(
			testutil.NewRequest(t, http.MethodPost, "/alliances/"+a.ID.String()+"/accept"),
			e.requester.String(), "talent")
		testutil.AssertStatusAndError(t, e.do(req), http.StatusForbidden, "forbidden")
	})

	t.Run("repeat accept is conflict", func(t *testing.T) {
		e := newEnv(t)
		a := e.pending(t)
		_, err := e.service.Accept(context.Background(), a.ID, e.receiver)
		require.NoError(t, err)

		req := testutil.WithAccount(
			testutil.NewRequest(t, http.MethodPost, "/alliances/"+a.ID.String()+"/accept"),
			e.receiver.String(), "talent")
		rec := e.do(req)

		testutil.AssertStatusAndError(t, rec, http.StatusConflict, "conflict")
		body := testutil.UnmarshalResponse[map[string]string](t, rec)
		assert.Equal(t, "accepted", (*body)["current_state"])
	})

	t.Run("malformed alliance id", func(t *testing.T) {
		e := newEnv(t)
		req := testutil.WithAccount(
			testutil.NewRequest(t, http.MethodPost, "/alliances/not-a-uuid/accept"),
			e.receiver.String(), "talent")
		testutil.AssertStatus(t, e.do(req), http.StatusBadRequest)
	})
}

func TestHandleRemove(t *testing.T) {
	e := newEnv(t)
	a := e.pending(t)
	_, err := e.service.Accept(context.Background(), a.ID, e.receiver)
	require.NoError(t, err)

	req := testutil.WithAccount(
		testutil.NewRequest(t, http.MethodDelete, "/alliances/"+a.ID.String()),
		e.requester.String(), "talent")
	testutil.AssertStatus(t, e.do(req), http.StatusNoContent)

	// The pair is free again afterwards.
	_, err = e.service.Request(context.Background(), e.requester, e.receiver)
	require.NoError(t, err)
}

func TestHandleList(t *testing.T) {
	e := newEnv(t)
	e.pending(t)

	req := testutil.WithAccount(
		testutil.NewRequest(t, http.MethodGet, "/alliances"),
		e.receiver.String(), "talent")
	rec := e.do(req)

	testutil.AssertStatus(t, rec, http.StatusOK)
	body := testutil.UnmarshalResponse[ListResponse](t, rec)
	require.Len(t, body.Alliances, 1)
	assert.Equal(t, "pending", body.Alliances[0].Status)
}
