package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/casestore"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/metrics"
	"gitlab.com/teranga/resolution/internal/resolution"
)

// OpenDisputeInput is a direct dispute filing against an order, without a
// preceding return case.
type OpenDisputeInput struct {
	PlaintiffID string
	OrderID     string
	Type        cases.DisputeType
	Description string
}

func (o *Orchestrator) OpenDispute(ctx context.Context, in OpenDisputeInput) (*cases.DisputeCase, error) {
	if in.PlaintiffID == "" {
		return nil, &cases.MissingFieldError{Action: cases.ActionOpen, Field: "plaintiff_id"}
	}
	if !cases.ValidDisputeType(in.Type) {
		return nil, &cases.MissingFieldError{Action: cases.ActionOpen, Field: "type"}
	}

	line, err := o.orders.GetOrderLine(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if line.BuyerID != in.PlaintiffID {
		return nil, &cases.UnauthorizedError{Role: cases.RolePlaintiff, Action: cases.ActionOpen}
	}

	now := o.now()
	deadline := now.Add(o.policy.ResponseDeadline)
	dc := &cases.DisputeCase{
		ID:               uuid.New().String(),
		OrderID:          in.OrderID,
		PlaintiffID:      in.PlaintiffID,
		RespondentID:     line.SellerID,
		Amount:           line.Amount,
		Status:           cases.DisputeOpened,
		Type:             in.Type,
		Description:      in.Description,
		ResponseDeadline: &deadline,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = o.store.CreateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: in.PlaintiffID, Role: cases.RolePlaintiff,
			Action: cases.ActionOpen, Detail: string(in.Type),
		},
		Notify: o.notify(map[string]any{"recipients": []string{line.SellerID}}),
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("open_dispute").Inc()
		return nil, err
	}

	o.scheduler.Arm(dc.ID, deadline)
	metrics.DisputesOpenedTotal.Inc()
	o.logger.Info("dispute opened",
		zap.String("case_id", dc.ID),
		zap.String("order_id", dc.OrderID))
	return dc, nil
}

// MarkDisputeNotified moves an Opened dispute to AwaitingResponse once the
// respondent's notification is confirmed published. Idempotent: a dispute the
// respondent already acted on is left alone.
func (o *Orchestrator) MarkDisputeNotified(ctx context.Context, caseID string) error {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return err
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		return err
	}

	status, err := o.validator.DisputeNext(dc, cases.ActionNotify, cases.RoleSystem)
	if err != nil {
		var invalid *cases.InvalidTransitionError
		if errors.As(err, &invalid) {
			o.logger.Debug("dispute already past notification",
				zap.String("case_id", caseID),
				zap.String("status", string(dc.Status)))
			return nil
		}
		return err
	}

	dc.Status = status
	dc.UpdatedAt = o.now()
	return o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case:  dc,
		Event: casestore.Event{ActorID: "system", Role: cases.RoleSystem, Action: cases.ActionNotify},
	})
}

// RespondToDispute records the respondent's answer together with a mandatory
// counter-offer. The plaintiff then has the proposal window to accept or
// contest it.
func (o *Orchestrator) RespondToDispute(ctx context.Context, caseID, actorID, message string, evidenceRefs []string, proposal resolution.Proposal) (*cases.DisputeCase, error) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if actorID != dc.RespondentID {
		return nil, &cases.UnauthorizedError{Role: cases.RoleRespondent, Action: cases.ActionRespond}
	}

	now := o.now()
	if dc.ResponseDeadline != nil && now.After(*dc.ResponseDeadline) {
		return nil, cases.ErrDeadlineAlreadyElapsed
	}
	if _, err := resolution.Compute(proposal, dc.Amount); err != nil {
		return nil, err
	}

	status, err := o.validator.DisputeNext(dc, cases.ActionRespond, cases.RoleRespondent)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("respond_dispute").Inc()
		return nil, err
	}

	proposalDeadline := now.Add(o.policy.ProposalDeadline)
	dc.Status = status
	dc.ResponseDeadline = nil
	dc.Proposal = &cases.MediationProposal{
		ProposedByID:     actorID,
		ProposedByRole:   cases.RoleRespondent,
		Resolution:       proposal,
		Rationale:        message,
		Round:            dc.MediationRound,
		ResponseDeadline: proposalDeadline,
	}
	dc.UpdatedAt = now

	mut := casestore.DisputeMutation{
		Case:   dc,
		Event:  casestore.Event{ActorID: actorID, Role: cases.RoleRespondent, Action: cases.ActionRespond, Detail: string(proposal.Type)},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID}}),
	}
	if message != "" {
		mut.Message = &cases.DisputeMessage{
			AuthorID:     actorID,
			Role:         cases.RoleRespondent,
			Body:         message,
			Timestamp:    now,
			EvidenceRefs: evidenceRefs,
		}
	}
	if err := o.store.UpdateDisputeCase(ctx, mut); err != nil {
		return nil, err
	}

	o.scheduler.Arm(dc.ID, proposalDeadline)
	return dc, nil
}

// MediatorPropose issues the next mediation round's proposal. Rejected once
// the round cap is reached: the previous proposal is then final.
func (o *Orchestrator) MediatorPropose(ctx context.Context, caseID, actorID string, proposal resolution.Proposal, rationale string) (*cases.DisputeCase, error) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if actorID == dc.PlaintiffID || actorID == dc.RespondentID {
		return nil, &cases.UnauthorizedError{Role: cases.RoleMediator, Action: cases.ActionPropose}
	}
	// The first proposer becomes the case mediator; nobody else may take over.
	if dc.MediatorID != nil && actorID != *dc.MediatorID {
		return nil, &cases.UnauthorizedError{Role: cases.RoleMediator, Action: cases.ActionPropose}
	}
	if _, err := resolution.Compute(proposal, dc.Amount); err != nil {
		return nil, err
	}

	status, err := o.validator.DisputeNext(dc, cases.ActionPropose, cases.RoleMediator)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("propose").Inc()
		return nil, err
	}

	now := o.now()
	proposalDeadline := now.Add(o.policy.ProposalDeadline)
	round := dc.MediationRound + 1
	if dc.MediatorID == nil {
		dc.MediatorID = &actorID
	}
	dc.Status = status
	dc.MediationRound = round
	dc.Proposal = &cases.MediationProposal{
		ProposedByID:     actorID,
		ProposedByRole:   cases.RoleMediator,
		Resolution:       proposal,
		Rationale:        rationale,
		Round:            round,
		ResponseDeadline: proposalDeadline,
	}
	dc.UpdatedAt = now

	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: actorID, Role: cases.RoleMediator, Action: cases.ActionPropose,
			Detail: fmt.Sprintf("round %d: %s", round, proposal.Type),
		},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
	})
	if err != nil {
		return nil, err
	}

	o.scheduler.Arm(dc.ID, proposalDeadline)
	metrics.MediationRoundsTotal.Inc()
	return dc, nil
}

// RespondToProposal records a party's acceptance or contest of the pending
// proposal. A mediator proposal resolves only when both parties accept; a
// contest of the final round's proposal applies it anyway.
func (o *Orchestrator) RespondToProposal(ctx context.Context, caseID, actorID string, accept bool) (*cases.DisputeCase, error) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	var role cases.ActorRole
	switch actorID {
	case dc.PlaintiffID:
		role = cases.RolePlaintiff
	case dc.RespondentID:
		role = cases.RoleRespondent
	default:
		action := cases.ActionAcceptProposal
		if !accept {
			action = cases.ActionContestProposal
		}
		return nil, &cases.UnauthorizedError{Role: cases.RoleMediator, Action: action}
	}

	now := o.now()
	if dc.Proposal != nil && now.After(dc.Proposal.ResponseDeadline) {
		return nil, cases.ErrDeadlineAlreadyElapsed
	}

	action := cases.ActionAcceptProposal
	if !accept {
		action = cases.ActionContestProposal
	}
	status, err := o.validator.DisputeNext(dc, action, role)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	if !accept && o.validator.FinalRoundReached(dc) {
		// The round cap is exhausted; the final proposal binds both parties.
		return o.applyProposal(ctx, dc, actorID, role, "final proposal binding on contest")
	}

	switch {
	case accept && status == cases.DisputeResolved:
		if role == cases.RolePlaintiff {
			dc.Proposal.PlaintiffAccepted = true
		} else {
			dc.Proposal.RespondentAccepted = true
		}
		return o.applyProposal(ctx, dc, actorID, role, "accepted")

	case accept:
		// First of two required acceptances.
		if role == cases.RolePlaintiff {
			dc.Proposal.PlaintiffAccepted = true
		} else {
			dc.Proposal.RespondentAccepted = true
		}
		dc.UpdatedAt = now
		err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
			Case: dc,
			Event: casestore.Event{
				ActorID: actorID, Role: role, Action: action,
				Detail: "awaiting the other party",
			},
		})
		if err != nil {
			return nil, err
		}
		return dc, nil

	default:
		dc.Status = status
		dc.Proposal = nil
		dc.UpdatedAt = now
		err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
			Case:   dc,
			Event:  casestore.Event{ActorID: actorID, Role: role, Action: action},
			Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
		})
		if err != nil {
			return nil, err
		}
		o.scheduler.Cancel(dc.ID)
		return dc, nil
	}
}

// PostMessage appends a message to the dispute thread without changing state.
func (o *Orchestrator) PostMessage(ctx context.Context, caseID, actorID, body string, evidenceRefs []string) (*cases.DisputeCase, error) {
	if body == "" {
		return nil, &cases.MissingFieldError{Action: cases.ActionMessage, Field: "body"}
	}

	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if dc.Terminal() {
		return nil, &cases.InvalidTransitionError{Kind: cases.KindDispute, Status: string(dc.Status), Action: cases.ActionMessage}
	}

	var role cases.ActorRole
	switch {
	case actorID == dc.PlaintiffID:
		role = cases.RolePlaintiff
	case actorID == dc.RespondentID:
		role = cases.RoleRespondent
	case dc.MediatorID != nil && actorID == *dc.MediatorID:
		role = cases.RoleMediator
	default:
		return nil, &cases.UnauthorizedError{Role: cases.RoleMediator, Action: cases.ActionMessage}
	}

	now := o.now()
	dc.UpdatedAt = now
	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case:  dc,
		Event: casestore.Event{ActorID: actorID, Role: role, Action: cases.ActionMessage},
		Message: &cases.DisputeMessage{
			AuthorID:     actorID,
			Role:         role,
			Body:         body,
			Timestamp:    now,
			EvidenceRefs: evidenceRefs,
		},
	})
	if err != nil {
		return nil, err
	}
	return dc, nil
}

// CloseDispute archives a settled dispute and reports the reputation effect
// to the scoring service.
func (o *Orchestrator) CloseDispute(ctx context.Context, caseID, actorID string) (*cases.DisputeCase, error) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	var role cases.ActorRole
	switch {
	case actorID == dc.PlaintiffID:
		role = cases.RolePlaintiff
	case actorID == dc.RespondentID:
		role = cases.RoleRespondent
	case dc.MediatorID != nil && actorID == *dc.MediatorID:
		role = cases.RoleMediator
	default:
		metrics.OperationErrorsTotal.WithLabelValues("close_dispute").Inc()
		return nil, &cases.UnauthorizedError{Role: cases.RoleMediator, Action: cases.ActionClose}
	}

	outcome := dc.Status
	status, err := o.validator.DisputeNext(dc, cases.ActionClose, role)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("close_dispute").Inc()
		return nil, err
	}

	dc.Status = status
	dc.UpdatedAt = o.now()
	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case:   dc,
		Event:  casestore.Event{ActorID: actorID, Role: role, Action: cases.ActionClose, Detail: string(outcome)},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
	})
	if err != nil {
		return nil, err
	}

	o.scheduler.Cancel(dc.ID)
	o.adjustReputation(ctx, dc, outcome)
	return dc, nil
}

// adjustReputation reports the dispute outcome to seller scoring. Advisory:
// a scoring failure is logged and never blocks the close.
func (o *Orchestrator) adjustReputation(ctx context.Context, dc *cases.DisputeCase, outcome cases.DisputeStatus) {
	escalated := dc.OriginatingReturnCaseID != nil

	var delta int
	var reason string
	switch outcome {
	case cases.DisputeRefunded:
		delta, reason = -1, "dispute refunded"
		if escalated {
			delta, reason = -2, "escalated dispute refunded"
		}
	case cases.DisputeRejected:
		if !escalated {
			delta, reason = 1, "dispute rejected without merit"
		}
	}
	if delta == 0 {
		return
	}

	if err := o.scoring.AdjustReputation(ctx, dc.RespondentID, delta, reason); err != nil {
		o.logger.Warn("reputation adjustment failed",
			zap.String("case_id", dc.ID),
			zap.Int("delta", delta),
			zap.Error(err))
	}
}

// HandleDeadline is the scheduler's fire handler. It re-reads the case and
// applies the elapsed-deadline transition only if the deadline is still
// relevant, so duplicate or stale fires are no-ops.
func (o *Orchestrator) HandleDeadline(ctx context.Context, caseID string) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		// An actor mutation is in flight; try again shortly.
		o.scheduler.Arm(caseID, o.now().Add(5*time.Second))
		return
	}
	defer unlock()

	dc, err := o.store.GetDisputeCase(ctx, caseID)
	if err != nil {
		o.logger.Error("deadline fired for unloadable case",
			zap.String("case_id", caseID), zap.Error(err))
		return
	}

	now := o.now()
	switch dc.Status {
	case cases.DisputeOpened, cases.DisputeAwaitingResponse:
		if dc.ResponseDeadline == nil || now.Before(*dc.ResponseDeadline) {
			return
		}
		o.handleResponseTimeout(ctx, dc, now)

	case cases.DisputeProposalSent:
		if dc.Proposal == nil || now.Before(dc.Proposal.ResponseDeadline) {
			return
		}
		o.handleProposalTimeout(ctx, dc, now)
	}
}

// handleResponseTimeout forfeits the respondent's answer window and moves the
// dispute into mediation.
func (o *Orchestrator) handleResponseTimeout(ctx context.Context, dc *cases.DisputeCase, now time.Time) {
	status, err := o.validator.DisputeNext(dc, cases.ActionNoResponse, cases.RoleSystem)
	if err != nil {
		o.logger.Error("response timeout transition rejected",
			zap.String("case_id", dc.ID), zap.Error(err))
		return
	}

	dc.Status = status
	dc.ResponseDeadline = nil
	dc.UpdatedAt = now
	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: "system", Role: cases.RoleSystem, Action: cases.ActionNoResponse,
			Detail: "respondent did not answer within the deadline",
		},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
	})
	if err != nil {
		o.logger.Error("applying response timeout", zap.String("case_id", dc.ID), zap.Error(err))
		return
	}
	o.logger.Info("dispute moved to mediation on silence", zap.String("case_id", dc.ID))
}

// handleProposalTimeout expires an unanswered proposal. Silence is never
// consent: the dispute returns to mediation, except at the round cap where
// the final proposal binds.
func (o *Orchestrator) handleProposalTimeout(ctx context.Context, dc *cases.DisputeCase, now time.Time) {
	if o.validator.FinalRoundReached(dc) {
		if _, err := o.applyProposal(ctx, dc, "system", cases.RoleSystem, "final proposal binding on expiry"); err != nil {
			o.logger.Error("applying final proposal on expiry",
				zap.String("case_id", dc.ID), zap.Error(err))
		}
		return
	}

	status, err := o.validator.DisputeNext(dc, cases.ActionProposalExpired, cases.RoleSystem)
	if err != nil {
		o.logger.Error("proposal expiry transition rejected",
			zap.String("case_id", dc.ID), zap.Error(err))
		return
	}

	dc.Status = status
	dc.Proposal = nil
	dc.UpdatedAt = now
	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: "system", Role: cases.RoleSystem, Action: cases.ActionProposalExpired,
			Detail: "proposal window elapsed without an answer",
		},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
	})
	if err != nil {
		o.logger.Error("applying proposal expiry", zap.String("case_id", dc.ID), zap.Error(err))
	}
}

// applyProposal settles the dispute on its pending proposal: Resolved first,
// then the monetary or denial follow-up. The caller holds the case lock.
func (o *Orchestrator) applyProposal(ctx context.Context, dc *cases.DisputeCase, actorID string, role cases.ActorRole, detail string) (*cases.DisputeCase, error) {
	if dc.Proposal == nil {
		return nil, &cases.InvalidTransitionError{Kind: cases.KindDispute, Status: string(dc.Status), Action: cases.ActionAcceptProposal}
	}
	terms := dc.Proposal.Resolution

	now := o.now()
	dc.Status = cases.DisputeResolved
	// A proposal only exists while one is pending; the accepted terms stay
	// on the event timeline.
	dc.Proposal = nil
	dc.UpdatedAt = now
	err := o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case:   dc,
		Event:  casestore.Event{ActorID: actorID, Role: role, Action: cases.ActionAcceptProposal, Detail: detail},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
	})
	if err != nil {
		return nil, err
	}
	o.scheduler.Cancel(dc.ID)

	outcome, err := resolution.Compute(terms, dc.Amount)
	if err != nil {
		// The proposal was validated when it was made.
		o.logger.Error("accepted proposal no longer computable",
			zap.String("case_id", dc.ID), zap.Error(err))
		return dc, nil
	}

	switch {
	case outcome.Monetary():
		return o.refundDispute(ctx, dc, outcome.RefundAmount)
	case terms.Type == resolution.TypeDenial:
		return o.denyDispute(ctx, dc)
	default:
		// Replacement and store credit are fulfilled by the notification
		// consumer; the dispute stays Resolved until closed.
		return dc, nil
	}
}

func (o *Orchestrator) refundDispute(ctx context.Context, dc *cases.DisputeCase, amount int64) (*cases.DisputeCase, error) {
	err := o.payments.ExecuteRefund(ctx, clients.RefundRequest{
		CaseID:      dc.ID,
		RecipientID: dc.PlaintiffID,
		Amount:      amount,
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("refund_dispute").Inc()
		if saveErr := o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
			Case:  dc,
			Event: casestore.Event{ActorID: "system", Role: cases.RoleSystem, Action: cases.ActionRefundFailed, Detail: err.Error()},
		}); saveErr != nil {
			o.logger.Error("recording dispute refund failure", zap.Error(saveErr))
		}
		return nil, err
	}

	status, err := o.validator.DisputeNext(dc, cases.ActionRefund, cases.RoleSystem)
	if err != nil {
		return nil, err
	}
	dc.Status = status
	dc.UpdatedAt = o.now()
	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: "system", Role: cases.RoleSystem, Action: cases.ActionRefund,
			Detail: fmt.Sprintf("refunded %d", amount),
		},
		Notify: o.notify(map[string]any{
			"recipients":    []string{dc.PlaintiffID, dc.RespondentID},
			"refund_amount": amount,
		}),
	})
	if err != nil {
		return nil, err
	}
	metrics.RefundsTotal.Inc()
	metrics.RefundedAmountTotal.Add(float64(amount))
	o.logger.Info("dispute refunded",
		zap.String("case_id", dc.ID), zap.Int64("amount", amount))
	return dc, nil
}

func (o *Orchestrator) denyDispute(ctx context.Context, dc *cases.DisputeCase) (*cases.DisputeCase, error) {
	status, err := o.validator.DisputeNext(dc, cases.ActionDeny, cases.RoleSystem)
	if err != nil {
		return nil, err
	}
	dc.Status = status
	dc.UpdatedAt = o.now()
	err = o.store.UpdateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: "system", Role: cases.RoleSystem, Action: cases.ActionDeny,
			Detail: "denial resolution accepted",
		},
		Notify: o.notify(map[string]any{"recipients": []string{dc.PlaintiffID, dc.RespondentID}}),
	})
	if err != nil {
		return nil, err
	}
	return dc, nil
}
