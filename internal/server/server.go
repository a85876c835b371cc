//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=server_mocks
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/orchestrator"
	"gitlab.com/teranga/resolution/internal/repository"
	"gitlab.com/teranga/resolution/internal/resolution"
)

// Engine is the orchestrator surface the HTTP layer depends on.
type Engine interface {
	SubmitReturn(ctx context.Context, in orchestrator.SubmitReturnInput) (*cases.ReturnCase, error)
	DecideReturn(ctx context.Context, caseID, actorID string, approve bool, rejectionReason string) (*cases.ReturnCase, error)
	MarkShipped(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error)
	ConfirmReceipt(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error)
	SubmitInspection(ctx context.Context, caseID, actorID, notes string, proposal resolution.Proposal) (*cases.ReturnCase, error)
	RefundReturn(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error)
	EscalateToDispute(ctx context.Context, caseID, actorID string, disputeType cases.DisputeType, description string) (*cases.DisputeCase, error)
	CloseReturn(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error)

	OpenDispute(ctx context.Context, in orchestrator.OpenDisputeInput) (*cases.DisputeCase, error)
	RespondToDispute(ctx context.Context, caseID, actorID, message string, evidenceRefs []string, proposal resolution.Proposal) (*cases.DisputeCase, error)
	MediatorPropose(ctx context.Context, caseID, actorID string, proposal resolution.Proposal, rationale string) (*cases.DisputeCase, error)
	RespondToProposal(ctx context.Context, caseID, actorID string, accept bool) (*cases.DisputeCase, error)
	PostMessage(ctx context.Context, caseID, actorID, body string, evidenceRefs []string) (*cases.DisputeCase, error)
	CloseDispute(ctx context.Context, caseID, actorID string) (*cases.DisputeCase, error)

	GetReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error)
	GetDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error)
	ListReturnsByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.ReturnCase, error)
	ListDisputesByParty(ctx context.Context, partyID string, page, limit int) ([]*cases.DisputeCase, error)
	AuditReturnCase(ctx context.Context, id string) (*orchestrator.AuditResult, error)
	AuditDisputeCase(ctx context.Context, id string) (*orchestrator.AuditResult, error)
}

type Users interface {
	Authenticate(ctx context.Context, username, password string) (*repository.User, error)
}

type Server struct {
	engine       Engine
	users        Users
	logger       *zap.Logger
	server       *http.Server
	AuditManager *AuditManager
}

func New(engine Engine, users Users, logger *zap.Logger) *Server {
	return &Server{
		engine:       engine,
		users:        users,
		logger:       logger,
		AuditManager: NewAuditManager(2, 5, 500*time.Millisecond, logger),
	}
}

func (s *Server) Run(ctx context.Context, port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	s.logger.Info("http server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.AuditManager.Shutdown(ctx)
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	api.Use(s.auditLogMiddleware, s.basicAuthMiddleware)

	api.HandleFunc("/returns", s.handleSubmitReturn).Methods(http.MethodPost)
	api.HandleFunc("/returns", s.handleListReturns).Methods(http.MethodGet)
	api.HandleFunc("/returns/{id}", s.handleGetReturn).Methods(http.MethodGet)
	api.HandleFunc("/returns/{id}/decision", s.handleDecideReturn).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/ship", s.handleMarkShipped).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/receipt", s.handleConfirmReceipt).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/inspection", s.handleSubmitInspection).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/refund", s.handleRefundReturn).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/escalate", s.handleEscalate).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/close", s.handleCloseReturn).Methods(http.MethodPost)
	api.HandleFunc("/returns/{id}/audit", s.handleAuditReturn).Methods(http.MethodGet)

	api.HandleFunc("/disputes", s.handleOpenDispute).Methods(http.MethodPost)
	api.HandleFunc("/disputes", s.handleListDisputes).Methods(http.MethodGet)
	api.HandleFunc("/disputes/{id}", s.handleGetDispute).Methods(http.MethodGet)
	api.HandleFunc("/disputes/{id}/response", s.handleRespondToDispute).Methods(http.MethodPost)
	api.HandleFunc("/disputes/{id}/proposal", s.handleMediatorPropose).Methods(http.MethodPost)
	api.HandleFunc("/disputes/{id}/proposal/decision", s.handleRespondToProposal).Methods(http.MethodPost)
	api.HandleFunc("/disputes/{id}/messages", s.handlePostMessage).Methods(http.MethodPost)
	api.HandleFunc("/disputes/{id}/close", s.handleCloseDispute).Methods(http.MethodPost)
	api.HandleFunc("/disputes/{id}/audit", s.handleAuditDispute).Methods(http.MethodGet)

	return router
}

type ctxKey int

const principalKey ctxKey = 1

func principal(r *http.Request) *repository.User {
	user, _ := r.Context().Value(principalKey).(*repository.User)
	return user
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := s.users.Authenticate(r.Context(), username, password)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, user)))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	var (
		invalidTransition *cases.InvalidTransitionError
		invalidProposal   *resolution.InvalidProposalError
		unauthorized      *cases.UnauthorizedError
		missingField      *cases.MissingFieldError
		downstream        *cases.DownstreamError
	)

	switch {
	case errors.As(err, &invalidTransition), errors.As(err, &invalidProposal),
		errors.Is(err, orchestrator.ErrOrderNotReturnable):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unauthorized):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &missingField):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cases.ErrCaseNotFound), errors.Is(err, clients.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cases.ErrConcurrentModification), errors.Is(err, cases.ErrDeadlineAlreadyElapsed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &downstream):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("unhandled engine error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// resolutionPayload is the wire form of a structured resolution offer.
type resolutionPayload struct {
	Type       string   `json:"type"`
	Amount     *int64   `json:"amount,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
}

func (p resolutionPayload) toProposal() resolution.Proposal {
	return resolution.Proposal{
		Type:       resolution.Type(p.Type),
		Amount:     p.Amount,
		Percentage: p.Percentage,
	}
}
