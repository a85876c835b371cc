package cases

import (
	"time"

	"gitlab.com/teranga/resolution/internal/resolution"
)

// Kind discriminates the two case families stored in the engine.
type Kind string

const (
	KindReturn  Kind = "return"
	KindDispute Kind = "dispute"
)

// ActorRole identifies who is performing an action on a case.
type ActorRole string

const (
	RoleBuyer      ActorRole = "buyer"
	RoleSeller     ActorRole = "seller"
	RolePlaintiff  ActorRole = "plaintiff"
	RoleRespondent ActorRole = "respondent"
	RoleMediator   ActorRole = "mediator"
	RoleSystem     ActorRole = "system"
)

// ReturnStatus is the lifecycle state of a ReturnCase.
type ReturnStatus string

const (
	ReturnRequested         ReturnStatus = "requested"
	ReturnApproved          ReturnStatus = "approved"
	ReturnRejected          ReturnStatus = "rejected"
	ReturnInTransit         ReturnStatus = "in_transit"
	ReturnReceived          ReturnStatus = "received"
	ReturnInspected         ReturnStatus = "inspected"
	ReturnRefunded          ReturnStatus = "refunded"
	ReturnPartiallyRefunded ReturnStatus = "partially_refunded"
	ReturnClosed            ReturnStatus = "closed"
)

// DisputeStatus is the lifecycle state of a DisputeCase.
type DisputeStatus string

const (
	DisputeOpened           DisputeStatus = "opened"
	DisputeAwaitingResponse DisputeStatus = "awaiting_respondent_response"
	DisputeInMediation      DisputeStatus = "in_mediation"
	DisputeProposalSent     DisputeStatus = "proposal_sent"
	DisputeResolved         DisputeStatus = "resolved"
	DisputeRefunded         DisputeStatus = "refunded"
	DisputeRejected         DisputeStatus = "rejected"
	DisputeClosed           DisputeStatus = "closed"
)

// ReturnReason is the buyer's stated ground for opening a return.
type ReturnReason string

const (
	ReasonDamaged        ReturnReason = "damaged"
	ReasonNotAsDescribed ReturnReason = "not_as_described"
	ReasonWrongQuantity  ReturnReason = "wrong_quantity"
	ReasonLateDelivery   ReturnReason = "late_delivery"
	ReasonMissingItem    ReturnReason = "missing_item"
	ReasonQualityIssue   ReturnReason = "quality_issue"
	ReasonOrderError     ReturnReason = "order_error"
	ReasonOther          ReturnReason = "other"
)

// ValidReturnReason reports whether r is one of the accepted return reasons.
func ValidReturnReason(r ReturnReason) bool {
	switch r {
	case ReasonDamaged, ReasonNotAsDescribed, ReasonWrongQuantity, ReasonLateDelivery,
		ReasonMissingItem, ReasonQualityIssue, ReasonOrderError, ReasonOther:
		return true
	}
	return false
}

// DisputeType classifies a dispute filing.
type DisputeType string

const (
	DisputeLateDelivery  DisputeType = "late_delivery"
	DisputeNotConforming DisputeType = "not_conforming"
	DisputeDamaged       DisputeType = "damaged"
	DisputeWrongQuantity DisputeType = "wrong_quantity"
	DisputeQualityIssue  DisputeType = "quality_issue"
	DisputeFraud         DisputeType = "fraud"
	DisputeOther         DisputeType = "other"
)

// ValidDisputeType reports whether t is one of the accepted dispute types.
func ValidDisputeType(t DisputeType) bool {
	switch t {
	case DisputeLateDelivery, DisputeNotConforming, DisputeDamaged,
		DisputeWrongQuantity, DisputeQualityIssue, DisputeFraud, DisputeOther:
		return true
	}
	return false
}

// Action is an actor intent applied to a case.
type Action string

const (
	ActionRequest         Action = "request"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionShip            Action = "ship"
	ActionConfirmReceipt  Action = "confirm_receipt"
	ActionInspect         Action = "inspect"
	ActionRefund          Action = "refund"
	ActionClose           Action = "close"
	ActionEscalate        Action = "escalate"
	ActionOpen            Action = "open"
	ActionNotify          Action = "notify"
	ActionRespond         Action = "respond"
	ActionDeny            Action = "deny"
	ActionNoResponse      Action = "no_response"
	ActionAcceptProposal  Action = "accept_proposal"
	ActionContestProposal Action = "contest_proposal"
	ActionPropose         Action = "propose"
	ActionProposalExpired Action = "proposal_expired"
	ActionRefundFailed    Action = "refund_failed"
	ActionMessage         Action = "message"
)

// TimelineEntry is one append-only audit record on a case. Seq is assigned by
// the store and is strictly increasing per case.
type TimelineEntry struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	ActorRole ActorRole `json:"actor_role"`
	Action    Action    `json:"action"`
	Detail    string    `json:"detail"`
}

// ReturnCase is a buyer's claim against a delivered order line. Amount is the
// order line amount in minor currency units and is immutable once the case is
// open.
type ReturnCase struct {
	ID              string
	OrderID         string
	BuyerID         string
	SellerID        string
	Amount          int64
	Status          ReturnStatus
	Reason          ReturnReason
	Description     string
	Evidence        []string
	ProposedRefund  *int64
	ResolutionType  *resolution.Type
	InspectionNotes string
	RejectionReason string
	Escalated       bool
	DisputeID       *string
	Timeline        []TimelineEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the return case accepts no further mutation.
func (rc *ReturnCase) Terminal() bool {
	return rc.Status == ReturnClosed || rc.Escalated
}

// MediationProposal is the currently pending resolution offer on a dispute.
// It exists only while the dispute is InMediation or ProposalSent.
type MediationProposal struct {
	ProposedByID       string              `json:"proposed_by_id"`
	ProposedByRole     ActorRole           `json:"proposed_by_role"`
	Resolution         resolution.Proposal `json:"resolution"`
	Rationale          string              `json:"rationale"`
	Round              int                 `json:"round"`
	ResponseDeadline   time.Time           `json:"response_deadline"`
	PlaintiffAccepted  bool                `json:"plaintiff_accepted"`
	RespondentAccepted bool                `json:"respondent_accepted"`
}

// DisputeMessage is one append-only message on a dispute thread.
type DisputeMessage struct {
	AuthorID     string    `json:"author_id"`
	Role         ActorRole `json:"role"`
	Body         string    `json:"body"`
	Timestamp    time.Time `json:"timestamp"`
	EvidenceRefs []string  `json:"evidence_refs"`
}

// DisputeCase is a mediated claim between a plaintiff and a respondent,
// either escalated from a rejected return or filed directly on an order.
type DisputeCase struct {
	ID                      string
	OriginatingReturnCaseID *string
	OrderID                 string
	PlaintiffID             string
	RespondentID            string
	MediatorID              *string
	Amount                  int64
	Status                  DisputeStatus
	Type                    DisputeType
	Description             string
	ResponseDeadline        *time.Time
	Messages                []DisputeMessage
	Proposal                *MediationProposal
	MediationRound          int
	Timeline                []TimelineEntry
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Terminal reports whether the dispute accepts no further mutation other than
// the final archival close.
func (dc *DisputeCase) Terminal() bool {
	return dc.Status == DisputeClosed
}

// Settled reports whether the dispute has reached a terminal-bound business
// outcome (still closable, never reopenable).
func (dc *DisputeCase) Settled() bool {
	switch dc.Status {
	case DisputeResolved, DisputeRefunded, DisputeRejected, DisputeClosed:
		return true
	}
	return false
}
