package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("not found")

// ReturnCaseRow is the materialized current-state projection of a return
// case. Timeline entries live in case_events.
type ReturnCaseRow struct {
	ID              string     `db:"id"`
	OrderID         string     `db:"order_id"`
	BuyerID         string     `db:"buyer_id"`
	SellerID        string     `db:"seller_id"`
	Amount          int64      `db:"amount"`
	Status          string     `db:"status"`
	Reason          string     `db:"reason"`
	Description     string     `db:"description"`
	Evidence        []byte     `db:"evidence"`
	ProposedRefund  *int64     `db:"proposed_refund"`
	ResolutionType  *string    `db:"resolution_type"`
	InspectionNotes string     `db:"inspection_notes"`
	RejectionReason string     `db:"rejection_reason"`
	Escalated       bool       `db:"escalated"`
	DisputeID       *string    `db:"dispute_id"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// DisputeCaseRow is the materialized current-state projection of a dispute.
// The pending proposal is stored as a JSON document; messages and timeline
// live in their own tables.
type DisputeCaseRow struct {
	ID                      string     `db:"id"`
	OriginatingReturnCaseID *string    `db:"originating_return_case_id"`
	OrderID                 string     `db:"order_id"`
	PlaintiffID             string     `db:"plaintiff_id"`
	RespondentID            string     `db:"respondent_id"`
	MediatorID              *string    `db:"mediator_id"`
	Amount                  int64      `db:"amount"`
	Status                  string     `db:"status"`
	Type                    string     `db:"type"`
	Description             string     `db:"description"`
	ResponseDeadline        *time.Time `db:"response_deadline"`
	Proposal                []byte     `db:"proposal"`
	MediationRound          int        `db:"mediation_round"`
	CreatedAt               time.Time  `db:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at"`
}

// DisputeMessageRow is one append-only message on a dispute thread.
type DisputeMessageRow struct {
	ID           int64     `db:"id"`
	CaseID       string    `db:"case_id"`
	AuthorID     string    `db:"author_id"`
	Role         string    `db:"role"`
	Body         string    `db:"body"`
	EvidenceRefs []byte    `db:"evidence_refs"`
	CreatedAt    time.Time `db:"created_at"`
}

// CaseEventRow is one row of the append-only event log. Seq is assigned by
// the insert and strictly increases per case; replaying the payloads in Seq
// order reproduces the projection.
type CaseEventRow struct {
	ID        uuid.UUID `db:"id"`
	CaseID    string    `db:"case_id"`
	CaseKind  string    `db:"case_kind"`
	Seq       int       `db:"seq"`
	ActorID   string    `db:"actor_id"`
	ActorRole string    `db:"actor_role"`
	Action    string    `db:"action"`
	Detail    string    `db:"detail"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "CREATED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// OutboxTask is one pending outbound notification event, written in the same
// transaction as the case mutation it announces.
type OutboxTask struct {
	ID          uuid.UUID  `db:"id"`
	Status      TaskStatus `db:"status"`
	Topic       string     `db:"topic"`
	Payload     []byte     `db:"payload"`
	Attempts    int        `db:"attempts"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// User is an authenticated API principal. Role gates which actor intents the
// principal may submit.
type User struct {
	ID       string `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
	Role     string `db:"role"`
}
