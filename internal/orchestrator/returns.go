package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/casestore"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/metrics"
	"gitlab.com/teranga/resolution/internal/resolution"
)

// SubmitReturnInput is a buyer's return filing.
type SubmitReturnInput struct {
	BuyerID     string
	OrderID     string
	Reason      cases.ReturnReason
	Description string
	Evidence    []string
}

// SubmitReturn validates the order line with the order service and opens a
// return case in Requested.
func (o *Orchestrator) SubmitReturn(ctx context.Context, in SubmitReturnInput) (*cases.ReturnCase, error) {
	if in.BuyerID == "" {
		return nil, &cases.MissingFieldError{Action: cases.ActionRequest, Field: "buyer_id"}
	}
	if in.OrderID == "" {
		return nil, &cases.MissingFieldError{Action: cases.ActionRequest, Field: "order_id"}
	}
	if !cases.ValidReturnReason(in.Reason) {
		return nil, &cases.MissingFieldError{Action: cases.ActionRequest, Field: "reason"}
	}

	line, err := o.orders.GetOrderLine(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !line.Delivered {
		return nil, ErrOrderNotReturnable
	}
	if line.BuyerID != in.BuyerID {
		return nil, &cases.UnauthorizedError{Role: cases.RoleBuyer, Action: cases.ActionRequest}
	}

	now := o.now()
	rc := &cases.ReturnCase{
		ID:          uuid.New().String(),
		OrderID:     in.OrderID,
		BuyerID:     in.BuyerID,
		SellerID:    line.SellerID,
		Amount:      line.Amount,
		Reason:      in.Reason,
		Description: in.Description,
		Evidence:    in.Evidence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	status, err := o.validator.ReturnNext(rc, cases.ActionRequest, cases.RoleBuyer, now)
	if err != nil {
		return nil, err
	}
	rc.Status = status

	err = o.store.CreateReturnCase(ctx, casestore.ReturnMutation{
		Case:   rc,
		Event:  casestore.Event{ActorID: in.BuyerID, Role: cases.RoleBuyer, Action: cases.ActionRequest, Detail: string(in.Reason)},
		Notify: o.notify(map[string]any{"recipients": []string{line.SellerID}}),
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("submit_return").Inc()
		return nil, err
	}
	metrics.ReturnCasesOpenedTotal.Inc()
	o.logger.Info("return case opened",
		zap.String("case_id", rc.ID),
		zap.String("order_id", rc.OrderID))
	return rc, nil
}

// DecideReturn is the seller's approval or rejection of a requested return.
// A rejection must carry a reason; the buyer can escalate it during the
// escalation window.
func (o *Orchestrator) DecideReturn(ctx context.Context, caseID, actorID string, approve bool, rejectionReason string) (*cases.ReturnCase, error) {
	action := cases.ActionApprove
	if !approve {
		action = cases.ActionReject
		if rejectionReason == "" {
			return nil, &cases.MissingFieldError{Action: action, Field: "rejection_reason"}
		}
	}

	return o.mutateReturn(ctx, caseID, action, actorID, func(rc *cases.ReturnCase) (cases.ActorRole, string, error) {
		if actorID != rc.SellerID {
			return "", "", &cases.UnauthorizedError{Role: cases.RoleSeller, Action: action}
		}
		if !approve {
			rc.RejectionReason = rejectionReason
		}
		return cases.RoleSeller, rejectionReason, nil
	})
}

// MarkShipped records that the buyer handed the item to the carrier.
func (o *Orchestrator) MarkShipped(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error) {
	return o.mutateReturn(ctx, caseID, cases.ActionShip, actorID, func(rc *cases.ReturnCase) (cases.ActorRole, string, error) {
		if actorID != rc.BuyerID {
			return "", "", &cases.UnauthorizedError{Role: cases.RoleBuyer, Action: cases.ActionShip}
		}
		return cases.RoleBuyer, "", nil
	})
}

// ConfirmReceipt records that the seller received the returned item.
func (o *Orchestrator) ConfirmReceipt(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error) {
	return o.mutateReturn(ctx, caseID, cases.ActionConfirmReceipt, actorID, func(rc *cases.ReturnCase) (cases.ActorRole, string, error) {
		if actorID != rc.SellerID {
			return "", "", &cases.UnauthorizedError{Role: cases.RoleSeller, Action: cases.ActionConfirmReceipt}
		}
		return cases.RoleSeller, "", nil
	})
}

// SubmitInspection records the seller's inspection notes and proposed
// resolution. The proposal is validated against the case amount before
// anything is persisted.
func (o *Orchestrator) SubmitInspection(ctx context.Context, caseID, actorID, notes string, proposal resolution.Proposal) (*cases.ReturnCase, error) {
	if notes == "" {
		return nil, &cases.MissingFieldError{Action: cases.ActionInspect, Field: "inspection_notes"}
	}

	return o.mutateReturn(ctx, caseID, cases.ActionInspect, actorID, func(rc *cases.ReturnCase) (cases.ActorRole, string, error) {
		if actorID != rc.SellerID {
			return "", "", &cases.UnauthorizedError{Role: cases.RoleSeller, Action: cases.ActionInspect}
		}
		outcome, err := resolution.Compute(proposal, rc.Amount)
		if err != nil {
			return "", "", err
		}
		rc.InspectionNotes = notes
		resType := proposal.Type
		rc.ResolutionType = &resType
		if outcome.Monetary() {
			refund := outcome.RefundAmount
			rc.ProposedRefund = &refund
		}
		return cases.RoleSeller, notes, nil
	})
}

// RefundReturn executes the inspected resolution through the payment service
// and settles the case. A payment failure leaves the case in Inspected with a
// refund_failed event on the timeline.
func (o *Orchestrator) RefundReturn(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rc, err := o.store.GetReturnCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if actorID != rc.SellerID {
		metrics.OperationErrorsTotal.WithLabelValues("refund_return").Inc()
		return nil, &cases.UnauthorizedError{Role: cases.RoleSeller, Action: cases.ActionRefund}
	}
	now := o.now()
	status, err := o.validator.ReturnNext(rc, cases.ActionRefund, cases.RoleSeller, now)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("refund_return").Inc()
		return nil, err
	}
	if rc.ProposedRefund == nil {
		return nil, &cases.MissingFieldError{Action: cases.ActionRefund, Field: "proposed_refund"}
	}

	err = o.payments.ExecuteRefund(ctx, clients.RefundRequest{
		CaseID:      rc.ID,
		RecipientID: rc.BuyerID,
		Amount:      *rc.ProposedRefund,
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("refund_return").Inc()
		rc.UpdatedAt = now
		if saveErr := o.store.UpdateReturnCase(ctx, casestore.ReturnMutation{
			Case:  rc,
			Event: casestore.Event{ActorID: actorID, Role: cases.RoleSeller, Action: cases.ActionRefundFailed, Detail: err.Error()},
		}); saveErr != nil {
			o.logger.Error("recording refund failure", zap.Error(saveErr))
		}
		return nil, err
	}

	rc.Status = status
	rc.UpdatedAt = now
	err = o.store.UpdateReturnCase(ctx, casestore.ReturnMutation{
		Case: rc,
		Event: casestore.Event{
			ActorID: actorID, Role: cases.RoleSeller, Action: cases.ActionRefund,
			Detail: fmt.Sprintf("refunded %d", *rc.ProposedRefund),
		},
		Notify: o.notify(map[string]any{
			"recipients":    []string{rc.BuyerID, rc.SellerID},
			"refund_amount": *rc.ProposedRefund,
		}),
	})
	if err != nil {
		return nil, err
	}
	metrics.RefundsTotal.Inc()
	metrics.RefundedAmountTotal.Add(float64(*rc.ProposedRefund))
	o.logger.Info("return refunded",
		zap.String("case_id", rc.ID),
		zap.Int64("amount", *rc.ProposedRefund))
	return rc, nil
}

// EscalateToDispute converts a rejected return into a dispute. The return is
// locked from then on; the dispute owns the outcome.
func (o *Orchestrator) EscalateToDispute(ctx context.Context, caseID, actorID string, disputeType cases.DisputeType, description string) (*cases.DisputeCase, error) {
	if !cases.ValidDisputeType(disputeType) {
		return nil, &cases.MissingFieldError{Action: cases.ActionEscalate, Field: "dispute_type"}
	}

	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rc, err := o.store.GetReturnCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if actorID != rc.BuyerID {
		return nil, &cases.UnauthorizedError{Role: cases.RoleBuyer, Action: cases.ActionEscalate}
	}

	now := o.now()
	if _, err := o.validator.ReturnNext(rc, cases.ActionEscalate, cases.RoleBuyer, now); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("escalate").Inc()
		return nil, err
	}

	deadline := now.Add(o.policy.ResponseDeadline)
	dc := &cases.DisputeCase{
		ID:                      uuid.New().String(),
		OriginatingReturnCaseID: &rc.ID,
		OrderID:                 rc.OrderID,
		PlaintiffID:             rc.BuyerID,
		RespondentID:            rc.SellerID,
		Amount:                  rc.Amount,
		Status:                  cases.DisputeOpened,
		Type:                    disputeType,
		Description:             description,
		ResponseDeadline:        &deadline,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	err = o.store.CreateDisputeCase(ctx, casestore.DisputeMutation{
		Case: dc,
		Event: casestore.Event{
			ActorID: actorID, Role: cases.RolePlaintiff, Action: cases.ActionOpen,
			Detail: fmt.Sprintf("escalated from return %s", rc.ID),
		},
		Notify: o.notify(map[string]any{"recipients": []string{rc.SellerID}}),
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("escalate").Inc()
		return nil, err
	}

	rc.Escalated = true
	rc.DisputeID = &dc.ID
	rc.UpdatedAt = now
	err = o.store.UpdateReturnCase(ctx, casestore.ReturnMutation{
		Case:  rc,
		Event: casestore.Event{ActorID: actorID, Role: cases.RoleBuyer, Action: cases.ActionEscalate, Detail: dc.ID},
	})
	if err != nil {
		// The dispute exists; the return will be reconciled by audit replay.
		o.logger.Error("locking escalated return", zap.String("case_id", rc.ID), zap.Error(err))
		return nil, err
	}

	o.scheduler.Arm(dc.ID, deadline)
	metrics.EscalationsTotal.Inc()
	metrics.DisputesOpenedTotal.Inc()
	o.logger.Info("return escalated to dispute",
		zap.String("return_case_id", rc.ID),
		zap.String("dispute_case_id", dc.ID))
	return dc, nil
}

// CloseReturn archives a settled return and reports the reputation effect to
// the scoring service. Rejected returns stay open for the whole escalation
// window first.
func (o *Orchestrator) CloseReturn(ctx context.Context, caseID, actorID string) (*cases.ReturnCase, error) {
	var outcome cases.ReturnStatus
	rc, err := o.mutateReturn(ctx, caseID, cases.ActionClose, actorID, func(rc *cases.ReturnCase) (cases.ActorRole, string, error) {
		outcome = rc.Status
		switch actorID {
		case rc.BuyerID:
			return cases.RoleBuyer, string(rc.Status), nil
		case rc.SellerID:
			return cases.RoleSeller, string(rc.Status), nil
		}
		return "", "", &cases.UnauthorizedError{Role: cases.RoleBuyer, Action: cases.ActionClose}
	})
	if err != nil {
		return nil, err
	}
	o.adjustReturnReputation(ctx, rc, outcome)
	return rc, nil
}

// adjustReturnReputation reports the settled return to seller scoring.
// Advisory: a scoring failure is logged and never blocks the close.
func (o *Orchestrator) adjustReturnReputation(ctx context.Context, rc *cases.ReturnCase, outcome cases.ReturnStatus) {
	var delta int
	var reason string
	switch outcome {
	case cases.ReturnRefunded, cases.ReturnPartiallyRefunded:
		delta, reason = -1, "return refunded"
	case cases.ReturnRejected:
		delta, reason = 1, "return rejected without escalation"
	}
	if delta == 0 {
		return
	}

	if err := o.scoring.AdjustReputation(ctx, rc.SellerID, delta, reason); err != nil {
		o.logger.Warn("reputation adjustment failed",
			zap.String("case_id", rc.ID),
			zap.Int("delta", delta),
			zap.Error(err))
	}
}

// mutateReturn runs the shared skeleton of a return transition: lock, fetch,
// resolve role and patch fields, validate, persist, notify.
func (o *Orchestrator) mutateReturn(
	ctx context.Context,
	caseID string,
	action cases.Action,
	actorID string,
	prepare func(rc *cases.ReturnCase) (cases.ActorRole, string, error),
) (*cases.ReturnCase, error) {
	unlock, err := o.lockCase(caseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rc, err := o.store.GetReturnCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	role, detail, err := prepare(rc)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	now := o.now()
	status, err := o.validator.ReturnNext(rc, action, role, now)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	rc.Status = status
	rc.UpdatedAt = now
	err = o.store.UpdateReturnCase(ctx, casestore.ReturnMutation{
		Case:   rc,
		Event:  casestore.Event{ActorID: actorID, Role: role, Action: action, Detail: detail},
		Notify: o.notify(map[string]any{"recipients": []string{rc.BuyerID, rc.SellerID}}),
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}
