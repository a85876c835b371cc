package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/orchestrator"
)

func (s *Server) handleSubmitReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID     string   `json:"order_id"`
		Reason      string   `json:"reason"`
		Description string   `json:"description"`
		Evidence    []string `json:"evidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc, err := s.engine.SubmitReturn(r.Context(), orchestrator.SubmitReturnInput{
		BuyerID:     principal(r).ID,
		OrderID:     req.OrderID,
		Reason:      cases.ReturnReason(req.Reason),
		Description: req.Description,
		Evidence:    req.Evidence,
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rc)
}

func (s *Server) handleDecideReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve         bool   `json:"approve"`
		RejectionReason string `json:"rejection_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc, err := s.engine.DecideReturn(r.Context(), mux.Vars(r)["id"], principal(r).ID, req.Approve, req.RejectionReason)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleMarkShipped(w http.ResponseWriter, r *http.Request) {
	rc, err := s.engine.MarkShipped(r.Context(), mux.Vars(r)["id"], principal(r).ID)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := s.engine.ConfirmReceipt(r.Context(), mux.Vars(r)["id"], principal(r).ID)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleSubmitInspection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes      string            `json:"notes"`
		Resolution resolutionPayload `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc, err := s.engine.SubmitInspection(r.Context(), mux.Vars(r)["id"], principal(r).ID, req.Notes, req.Resolution.toProposal())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleRefundReturn(w http.ResponseWriter, r *http.Request) {
	rc, err := s.engine.RefundReturn(r.Context(), mux.Vars(r)["id"], principal(r).ID)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dc, err := s.engine.EscalateToDispute(r.Context(), mux.Vars(r)["id"], principal(r).ID, cases.DisputeType(req.Type), req.Description)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dc)
}

func (s *Server) handleCloseReturn(w http.ResponseWriter, r *http.Request) {
	rc, err := s.engine.CloseReturn(r.Context(), mux.Vars(r)["id"], principal(r).ID)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleGetReturn(w http.ResponseWriter, r *http.Request) {
	rc, err := s.engine.GetReturnCase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (s *Server) handleListReturns(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	returns, err := s.engine.ListReturnsByParty(r.Context(), principal(r).ID, page, limit)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, returns)
}

func (s *Server) handleAuditReturn(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.AuditReturnCase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID     string `json:"order_id"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dc, err := s.engine.OpenDispute(r.Context(), orchestrator.OpenDisputeInput{
		PlaintiffID: principal(r).ID,
		OrderID:     req.OrderID,
		Type:        cases.DisputeType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dc)
}

func (s *Server) handleRespondToDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message      string            `json:"message"`
		EvidenceRefs []string          `json:"evidence_refs"`
		Resolution   resolutionPayload `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dc, err := s.engine.RespondToDispute(r.Context(), mux.Vars(r)["id"], principal(r).ID, req.Message, req.EvidenceRefs, req.Resolution.toProposal())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

func (s *Server) handleMediatorPropose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resolution resolutionPayload `json:"resolution"`
		Rationale  string            `json:"rationale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dc, err := s.engine.MediatorPropose(r.Context(), mux.Vars(r)["id"], principal(r).ID, req.Resolution.toProposal(), req.Rationale)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

func (s *Server) handleRespondToProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dc, err := s.engine.RespondToProposal(r.Context(), mux.Vars(r)["id"], principal(r).ID, req.Accept)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body         string   `json:"body"`
		EvidenceRefs []string `json:"evidence_refs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dc, err := s.engine.PostMessage(r.Context(), mux.Vars(r)["id"], principal(r).ID, req.Body, req.EvidenceRefs)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

func (s *Server) handleCloseDispute(w http.ResponseWriter, r *http.Request) {
	dc, err := s.engine.CloseDispute(r.Context(), mux.Vars(r)["id"], principal(r).ID)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

func (s *Server) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	dc, err := s.engine.GetDisputeCase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dc)
}

func (s *Server) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	disputes, err := s.engine.ListDisputesByParty(r.Context(), principal(r).ID, page, limit)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, disputes)
}

func (s *Server) handleAuditDispute(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.AuditDisputeCase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func pagination(w http.ResponseWriter, r *http.Request) (page, limit int, ok bool) {
	page, limit = 1, 10

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		var err error
		page, err = strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			respondError(w, http.StatusBadRequest, "invalid value for 'page' parameter")
			return 0, 0, false
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 100 {
			respondError(w, http.StatusBadRequest, "invalid value for 'limit' parameter")
			return 0, 0, false
		}
	}
	return page, limit, true
}
