package resolution

import (
	"fmt"
	"math"
)

// Type is the kind of resolution attached to a proposal or inspection outcome.
type Type string

const (
	TypeFullRefund    Type = "full_refund"
	TypePartialRefund Type = "partial_refund"
	TypeReplacement   Type = "replacement"
	TypeStoreCredit   Type = "store_credit"
	TypeDenial        Type = "denial"
)

// InvalidProposalError reports a malformed monetary proposal. It is always
// returned to the proposing actor, never auto-corrected.
type InvalidProposalError struct {
	Reason string
}

func (e *InvalidProposalError) Error() string {
	return fmt.Sprintf("invalid proposal: %s", e.Reason)
}

// Proposal is a structured resolution offer. Amount and Percentage are
// interpreted per Type; unused fields must be nil.
type Proposal struct {
	Type       Type
	Amount     *int64
	Percentage *float64
}

// Outcome is the computed effect of applying a proposal to a case amount.
// RefundAmount is in minor currency units and always within [0, caseAmount].
type Outcome struct {
	RefundAmount     int64
	NonMonetary      bool
	NonMonetaryLabel string
}

// Monetary reports whether applying the proposal moves money.
func (o Outcome) Monetary() bool {
	return o.RefundAmount > 0
}

// Compute turns a proposal into a refund instruction bounded by the case
// amount. Percentage proposals are computed against the case amount, not the
// original order total, so partial shipments are never double-counted.
func Compute(p Proposal, caseAmount int64) (Outcome, error) {
	if caseAmount < 0 {
		return Outcome{}, &InvalidProposalError{Reason: "case amount is negative"}
	}

	switch p.Type {
	case TypeFullRefund:
		return Outcome{RefundAmount: caseAmount}, nil

	case TypePartialRefund:
		if p.Percentage == nil {
			return Outcome{}, &InvalidProposalError{Reason: "partial refund requires a percentage"}
		}
		pct := *p.Percentage
		if pct <= 0 || pct > 100 {
			return Outcome{}, &InvalidProposalError{Reason: fmt.Sprintf("percentage %.2f outside (0,100]", pct)}
		}
		refund := int64(math.Round(float64(caseAmount) * pct / 100))
		if refund > caseAmount {
			refund = caseAmount
		}
		return Outcome{RefundAmount: refund}, nil

	case TypeStoreCredit:
		if p.Amount == nil {
			return Outcome{}, &InvalidProposalError{Reason: "store credit requires an amount"}
		}
		if *p.Amount < 0 || *p.Amount > caseAmount {
			return Outcome{}, &InvalidProposalError{Reason: fmt.Sprintf("store credit %d outside [0,%d]", *p.Amount, caseAmount)}
		}
		// Credit is issued by the notification consumer, not the payment rail.
		return Outcome{NonMonetary: true, NonMonetaryLabel: "store_credit"}, nil

	case TypeReplacement:
		return Outcome{NonMonetary: true, NonMonetaryLabel: "replacement"}, nil

	case TypeDenial:
		return Outcome{NonMonetary: true, NonMonetaryLabel: "denial"}, nil

	default:
		return Outcome{}, &InvalidProposalError{Reason: fmt.Sprintf("unknown resolution type %q", p.Type)}
	}
}
