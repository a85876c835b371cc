package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/orchestrator"
	"gitlab.com/teranga/resolution/internal/repository"
	server_mocks "gitlab.com/teranga/resolution/internal/server/mocks"
)

func newTestServer(t *testing.T) (*Server, *server_mocks.MockEngine, *server_mocks.MockUsers, http.Handler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockEngine := server_mocks.NewMockEngine(ctrl)
	mockUsers := server_mocks.NewMockUsers(ctrl)
	srv := New(mockEngine, mockUsers, zap.NewNop())
	srv.AuditManager.Start(context.Background())
	t.Cleanup(func() { srv.AuditManager.Shutdown(context.Background()) })

	return srv, mockEngine, mockUsers, srv.setupRoutes()
}

func authAs(users *server_mocks.MockUsers, user *repository.User) {
	users.EXPECT().
		Authenticate(gomock.Any(), user.Username, "secret").
		Return(user, nil).
		AnyTimes()
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body any, username string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if username != "" {
		req.SetBasicAuth(username, "secret")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmitReturn(t *testing.T) {
	_, mockEngine, mockUsers, handler := newTestServer(t)
	authAs(mockUsers, &repository.User{ID: "buyer-1", Username: "alice"})

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		setupMocks     func()
		expectedStatus int
	}{
		{
			name: "successful submission",
			requestBody: map[string]interface{}{
				"order_id":    "ord-1",
				"reason":      "damaged",
				"description": "arrived cracked",
				"evidence":    []string{"photo-1"},
			},
			setupMocks: func() {
				mockEngine.EXPECT().
					SubmitReturn(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, in orchestrator.SubmitReturnInput) (*cases.ReturnCase, error) {
						assert.Equal(t, "buyer-1", in.BuyerID)
						assert.Equal(t, "ord-1", in.OrderID)
						assert.Equal(t, cases.ReasonDamaged, in.Reason)
						return &cases.ReturnCase{ID: "ret-1", Status: cases.ReturnRequested}, nil
					})
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "unknown order",
			requestBody: map[string]interface{}{
				"order_id":    "ord-missing",
				"reason":      "damaged",
				"description": "arrived cracked",
			},
			setupMocks: func() {
				mockEngine.EXPECT().
					SubmitReturn(gomock.Any(), gomock.Any()).
					Return(nil, clients.ErrOrderNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "order not returnable",
			requestBody: map[string]interface{}{
				"order_id":    "ord-2",
				"reason":      "damaged",
				"description": "arrived cracked",
			},
			setupMocks: func() {
				mockEngine.EXPECT().
					SubmitReturn(gomock.Any(), gomock.Any()).
					Return(nil, orchestrator.ErrOrderNotReturnable)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "missing reason",
			requestBody: map[string]interface{}{
				"order_id": "ord-1",
			},
			setupMocks: func() {
				mockEngine.EXPECT().
					SubmitReturn(gomock.Any(), gomock.Any()).
					Return(nil, &cases.MissingFieldError{Action: cases.ActionRequest, Field: "reason"})
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()
			rec := doRequest(t, handler, http.MethodPost, "/returns", tt.requestBody, "alice")
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestEngineErrorMapping(t *testing.T) {
	_, mockEngine, mockUsers, handler := newTestServer(t)
	authAs(mockUsers, &repository.User{ID: "seller-1", Username: "bob"})

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "invalid transition",
			err:            &cases.InvalidTransitionError{Kind: cases.KindReturn, Status: "closed", Action: cases.ActionRefund},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "unauthorized role",
			err:            &cases.UnauthorizedError{Role: cases.RoleBuyer, Action: cases.ActionRefund},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "case not found",
			err:            cases.ErrCaseNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "concurrent modification",
			err:            cases.ErrConcurrentModification,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "deadline already elapsed",
			err:            cases.ErrDeadlineAlreadyElapsed,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "payment outage",
			err:            &cases.DownstreamError{Service: "payment", Err: errors.New("connection refused")},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "unexpected failure",
			err:            errors.New("disk on fire"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine.EXPECT().
				RefundReturn(gomock.Any(), "ret-1", "seller-1").
				Return(nil, tt.err)

			rec := doRequest(t, handler, http.MethodPost, "/returns/ret-1/refund", nil, "bob")
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestAuthentication(t *testing.T) {
	_, _, mockUsers, handler := newTestServer(t)

	t.Run("missing credentials", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/returns/ret-1", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("rejected credentials", func(t *testing.T) {
		mockUsers.EXPECT().
			Authenticate(gomock.Any(), "mallory", "secret").
			Return(nil, errors.New("invalid credentials"))

		rec := doRequest(t, handler, http.MethodGet, "/returns/ret-1", nil, "mallory")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("metrics endpoint is open", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/metrics", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestActorComesFromPrincipal(t *testing.T) {
	_, mockEngine, mockUsers, handler := newTestServer(t)
	authAs(mockUsers, &repository.User{ID: "plaintiff-1", Username: "alice"})

	// The body may not smuggle a different actor; the engine must receive
	// the authenticated principal's id.
	mockEngine.EXPECT().
		RespondToProposal(gomock.Any(), "dsp-1", "plaintiff-1", true).
		Return(&cases.DisputeCase{ID: "dsp-1", Status: cases.DisputeResolved}, nil)

	body := map[string]interface{}{"accept": true, "actor_id": "someone-else"}
	rec := doRequest(t, handler, http.MethodPost, "/disputes/dsp-1/proposal/decision", body, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	var dc cases.DisputeCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dc))
	assert.Equal(t, cases.DisputeResolved, dc.Status)
}

func TestHandleListReturnsPagination(t *testing.T) {
	_, mockEngine, mockUsers, handler := newTestServer(t)
	authAs(mockUsers, &repository.User{ID: "buyer-1", Username: "alice"})

	t.Run("defaults applied", func(t *testing.T) {
		mockEngine.EXPECT().
			ListReturnsByParty(gomock.Any(), "buyer-1", 1, 10).
			Return([]*cases.ReturnCase{{ID: "ret-1"}}, nil)

		rec := doRequest(t, handler, http.MethodGet, "/returns", nil, "alice")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("explicit page and limit", func(t *testing.T) {
		mockEngine.EXPECT().
			ListReturnsByParty(gomock.Any(), "buyer-1", 3, 25).
			Return(nil, nil)

		rec := doRequest(t, handler, http.MethodGet, "/returns?page=3&limit=25", nil, "alice")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid page", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/returns?page=zero", nil, "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit over cap", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/returns?limit=500", nil, "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleInvalidBody(t *testing.T) {
	_, _, mockUsers, handler := newTestServer(t)
	authAs(mockUsers, &repository.User{ID: "buyer-1", Username: "alice"})

	req := httptest.NewRequest(http.MethodPost, "/returns", bytes.NewBufferString("{not json"))
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}
