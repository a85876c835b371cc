package casestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/repository"
)

// returnPatch is the event payload of a return case mutation. Only fields the
// mutation changed are set, so folding the patches in seq order over a zero
// row reproduces the projection.
type returnPatch struct {
	OrderID         *string  `json:"order_id,omitempty"`
	BuyerID         *string  `json:"buyer_id,omitempty"`
	SellerID        *string  `json:"seller_id,omitempty"`
	Amount          *int64   `json:"amount,omitempty"`
	Status          *string  `json:"status,omitempty"`
	Reason          *string  `json:"reason,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Evidence        []string `json:"evidence,omitempty"`
	ProposedRefund  *int64   `json:"proposed_refund,omitempty"`
	ResolutionType  *string  `json:"resolution_type,omitempty"`
	InspectionNotes *string  `json:"inspection_notes,omitempty"`
	RejectionReason *string  `json:"rejection_reason,omitempty"`
	Escalated       *bool    `json:"escalated,omitempty"`
	DisputeID       *string  `json:"dispute_id,omitempty"`
}

type disputePatch struct {
	OriginatingReturnCaseID *string         `json:"originating_return_case_id,omitempty"`
	OrderID                 *string         `json:"order_id,omitempty"`
	PlaintiffID             *string         `json:"plaintiff_id,omitempty"`
	RespondentID            *string         `json:"respondent_id,omitempty"`
	MediatorID              *string         `json:"mediator_id,omitempty"`
	Amount                  *int64          `json:"amount,omitempty"`
	Status                  *string         `json:"status,omitempty"`
	Type                    *string         `json:"type,omitempty"`
	Description             *string         `json:"description,omitempty"`
	ResponseDeadline        *time.Time      `json:"response_deadline,omitempty"`
	ClearDeadline           bool            `json:"clear_deadline,omitempty"`
	Proposal                json.RawMessage `json:"proposal,omitempty"`
	ClearProposal           bool            `json:"clear_proposal,omitempty"`
	MediationRound          *int            `json:"mediation_round,omitempty"`
}

func diffReturn(old, row *repository.ReturnCaseRow) (returnPatch, error) {
	var p returnPatch
	if old == nil {
		p.OrderID = &row.OrderID
		p.BuyerID = &row.BuyerID
		p.SellerID = &row.SellerID
		p.Amount = &row.Amount
		p.Reason = &row.Reason
		p.Description = &row.Description
		if len(row.Evidence) > 0 {
			if err := json.Unmarshal(row.Evidence, &p.Evidence); err != nil {
				return returnPatch{}, fmt.Errorf("decode evidence for event payload: %w", err)
			}
		}
	}
	if old == nil || old.Status != row.Status {
		p.Status = &row.Status
	}
	if changedInt64Ptr(ptrOf(old, func(r *repository.ReturnCaseRow) *int64 { return r.ProposedRefund }), row.ProposedRefund) {
		p.ProposedRefund = row.ProposedRefund
	}
	if changedStrPtr(ptrOf(old, func(r *repository.ReturnCaseRow) *string { return r.ResolutionType }), row.ResolutionType) {
		p.ResolutionType = row.ResolutionType
	}
	if old == nil && row.InspectionNotes != "" || old != nil && old.InspectionNotes != row.InspectionNotes {
		p.InspectionNotes = &row.InspectionNotes
	}
	if old == nil && row.RejectionReason != "" || old != nil && old.RejectionReason != row.RejectionReason {
		p.RejectionReason = &row.RejectionReason
	}
	if (old == nil && row.Escalated) || (old != nil && old.Escalated != row.Escalated) {
		p.Escalated = &row.Escalated
	}
	if changedStrPtr(ptrOf(old, func(r *repository.ReturnCaseRow) *string { return r.DisputeID }), row.DisputeID) {
		p.DisputeID = row.DisputeID
	}
	return p, nil
}

func diffDispute(old, row *repository.DisputeCaseRow) disputePatch {
	var p disputePatch
	if old == nil {
		p.OriginatingReturnCaseID = row.OriginatingReturnCaseID
		p.OrderID = &row.OrderID
		p.PlaintiffID = &row.PlaintiffID
		p.RespondentID = &row.RespondentID
		p.Amount = &row.Amount
		p.Type = &row.Type
		p.Description = &row.Description
	}
	if old == nil || old.Status != row.Status {
		p.Status = &row.Status
	}
	oldMediator := ptrOf(old, func(r *repository.DisputeCaseRow) *string { return r.MediatorID })
	if changedStrPtr(oldMediator, row.MediatorID) {
		p.MediatorID = row.MediatorID
	}
	oldDeadline := ptrOf(old, func(r *repository.DisputeCaseRow) *time.Time { return r.ResponseDeadline })
	if changedTimePtr(oldDeadline, row.ResponseDeadline) {
		if row.ResponseDeadline == nil {
			p.ClearDeadline = true
		} else {
			p.ResponseDeadline = row.ResponseDeadline
		}
	}
	oldProposal := []byte(nil)
	if old != nil {
		oldProposal = old.Proposal
	}
	if !bytes.Equal(oldProposal, row.Proposal) {
		if len(row.Proposal) == 0 {
			p.ClearProposal = true
		} else {
			p.Proposal = row.Proposal
		}
	}
	if old == nil && row.MediationRound != 0 || old != nil && old.MediationRound != row.MediationRound {
		p.MediationRound = &row.MediationRound
	}
	return p
}

// ReplayReturnCase rebuilds the return case purely from its event log.
// Comparing the result with GetReturnCase verifies the projection.
func (s *Store) ReplayReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error) {
	events, err := s.events.ListByCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, cases.ErrCaseNotFound
	}

	row := &repository.ReturnCaseRow{ID: id, CreatedAt: events[0].CreatedAt}
	for _, ev := range events {
		var p returnPatch
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", ev.Seq, err)
		}
		applyReturnPatch(row, p)
		row.UpdatedAt = ev.CreatedAt
	}

	rc, err := returnCaseFromRow(row)
	if err != nil {
		return nil, err
	}
	rc.Timeline = timelineFromEvents(events)
	return rc, nil
}

// ReplayDisputeCase rebuilds the dispute from its event log. Messages are not
// folded; they live in their own append-only table.
func (s *Store) ReplayDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error) {
	events, err := s.events.ListByCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, cases.ErrCaseNotFound
	}

	row := &repository.DisputeCaseRow{ID: id, CreatedAt: events[0].CreatedAt}
	for _, ev := range events {
		var p disputePatch
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", ev.Seq, err)
		}
		applyDisputePatch(row, p)
		row.UpdatedAt = ev.CreatedAt
	}

	dc, err := disputeCaseFromRow(row)
	if err != nil {
		return nil, err
	}
	dc.Timeline = timelineFromEvents(events)
	return dc, nil
}

func applyReturnPatch(row *repository.ReturnCaseRow, p returnPatch) {
	if p.OrderID != nil {
		row.OrderID = *p.OrderID
	}
	if p.BuyerID != nil {
		row.BuyerID = *p.BuyerID
	}
	if p.SellerID != nil {
		row.SellerID = *p.SellerID
	}
	if p.Amount != nil {
		row.Amount = *p.Amount
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
	if p.Reason != nil {
		row.Reason = *p.Reason
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	if p.Evidence != nil {
		row.Evidence, _ = json.Marshal(p.Evidence)
	}
	if p.ProposedRefund != nil {
		row.ProposedRefund = p.ProposedRefund
	}
	if p.ResolutionType != nil {
		row.ResolutionType = p.ResolutionType
	}
	if p.InspectionNotes != nil {
		row.InspectionNotes = *p.InspectionNotes
	}
	if p.RejectionReason != nil {
		row.RejectionReason = *p.RejectionReason
	}
	if p.Escalated != nil {
		row.Escalated = *p.Escalated
	}
	if p.DisputeID != nil {
		row.DisputeID = p.DisputeID
	}
}

func applyDisputePatch(row *repository.DisputeCaseRow, p disputePatch) {
	if p.OriginatingReturnCaseID != nil {
		row.OriginatingReturnCaseID = p.OriginatingReturnCaseID
	}
	if p.OrderID != nil {
		row.OrderID = *p.OrderID
	}
	if p.PlaintiffID != nil {
		row.PlaintiffID = *p.PlaintiffID
	}
	if p.RespondentID != nil {
		row.RespondentID = *p.RespondentID
	}
	if p.MediatorID != nil {
		row.MediatorID = p.MediatorID
	}
	if p.Amount != nil {
		row.Amount = *p.Amount
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
	if p.Type != nil {
		row.Type = *p.Type
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	if p.ClearDeadline {
		row.ResponseDeadline = nil
	} else if p.ResponseDeadline != nil {
		row.ResponseDeadline = p.ResponseDeadline
	}
	if p.ClearProposal {
		row.Proposal = nil
	} else if len(p.Proposal) > 0 {
		row.Proposal = p.Proposal
	}
	if p.MediationRound != nil {
		row.MediationRound = *p.MediationRound
	}
}

func ptrOf[R any, V any](old *R, get func(*R) *V) *V {
	if old == nil {
		return nil
	}
	return get(old)
}

func changedStrPtr(old, cur *string) bool {
	switch {
	case old == nil && cur == nil:
		return false
	case old == nil || cur == nil:
		return true
	default:
		return *old != *cur
	}
}

func changedInt64Ptr(old, cur *int64) bool {
	switch {
	case old == nil && cur == nil:
		return false
	case old == nil || cur == nil:
		return true
	default:
		return *old != *cur
	}
}

func changedTimePtr(old, cur *time.Time) bool {
	switch {
	case old == nil && cur == nil:
		return false
	case old == nil || cur == nil:
		return true
	default:
		return !old.Equal(*cur)
	}
}
