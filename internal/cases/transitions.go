package cases

import (
	"time"
)

// Validator enforces legal state transitions, role permissions and
// policy-bounded mediation on both case kinds. It is pure: callers pass the
// current snapshot and get back the next status or a typed rejection.
type Validator struct {
	// MaxMediationRounds caps mediator proposals; once reached, the last
	// proposal is final and auto-applied on contest or silence.
	MaxMediationRounds int

	// EscalationWindow is how long a rejected return stays open for the buyer
	// to escalate before it becomes closable.
	EscalationWindow time.Duration
}

func NewValidator(maxMediationRounds int, escalationWindow time.Duration) *Validator {
	return &Validator{
		MaxMediationRounds: maxMediationRounds,
		EscalationWindow:   escalationWindow,
	}
}

type returnRule struct {
	from  []ReturnStatus
	roles []ActorRole
}

// returnRules is the legal (action -> from-statuses, roles) table for
// returns. Resulting statuses that depend on case data are resolved in
// ReturnNext.
var returnRules = map[Action]returnRule{
	ActionRequest:        {from: []ReturnStatus{""}, roles: []ActorRole{RoleBuyer}},
	ActionApprove:        {from: []ReturnStatus{ReturnRequested}, roles: []ActorRole{RoleSeller}},
	ActionReject:         {from: []ReturnStatus{ReturnRequested}, roles: []ActorRole{RoleSeller}},
	ActionShip:           {from: []ReturnStatus{ReturnApproved}, roles: []ActorRole{RoleBuyer}},
	ActionConfirmReceipt: {from: []ReturnStatus{ReturnInTransit}, roles: []ActorRole{RoleSeller}},
	ActionInspect:        {from: []ReturnStatus{ReturnReceived}, roles: []ActorRole{RoleSeller}},
	ActionRefund:         {from: []ReturnStatus{ReturnInspected}, roles: []ActorRole{RoleSeller}},
	ActionEscalate:       {from: []ReturnStatus{ReturnRejected}, roles: []ActorRole{RoleBuyer}},
	ActionClose: {
		from:  []ReturnStatus{ReturnRefunded, ReturnPartiallyRefunded, ReturnRejected},
		roles: []ActorRole{RoleBuyer, RoleSeller},
	},
}

func containsReturnStatus(ss []ReturnStatus, s ReturnStatus) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(rs []ActorRole, r ActorRole) bool {
	for _, v := range rs {
		if v == r {
			return true
		}
	}
	return false
}

// ReturnNext validates (current status, action, role) for a return case and
// resolves the resulting status. The zero-status case (not yet persisted) is
// only valid for ActionRequest.
func (v *Validator) ReturnNext(rc *ReturnCase, action Action, role ActorRole, now time.Time) (ReturnStatus, error) {
	rule, ok := returnRules[action]
	if !ok {
		return "", &InvalidTransitionError{Kind: KindReturn, Status: string(rc.Status), Action: action}
	}

	// An escalated return is locked: the linked dispute owns the outcome.
	if rc.Escalated {
		return "", &InvalidTransitionError{Kind: KindReturn, Status: string(rc.Status), Action: action}
	}
	if rc.Status == ReturnClosed {
		return "", &InvalidTransitionError{Kind: KindReturn, Status: string(rc.Status), Action: action}
	}

	if !containsReturnStatus(rule.from, rc.Status) {
		return "", &InvalidTransitionError{Kind: KindReturn, Status: string(rc.Status), Action: action}
	}
	if !containsRole(rule.roles, role) {
		return "", &UnauthorizedError{Role: role, Action: action}
	}

	switch action {
	case ActionRequest:
		return ReturnRequested, nil
	case ActionApprove:
		return ReturnApproved, nil
	case ActionReject:
		return ReturnRejected, nil
	case ActionShip:
		return ReturnInTransit, nil
	case ActionConfirmReceipt:
		return ReturnReceived, nil
	case ActionInspect:
		return ReturnInspected, nil
	case ActionRefund:
		if rc.ProposedRefund != nil && *rc.ProposedRefund == rc.Amount {
			return ReturnRefunded, nil
		}
		return ReturnPartiallyRefunded, nil
	case ActionEscalate:
		// Status is unchanged; the orchestrator flags the case escalated and
		// opens the linked dispute.
		return ReturnRejected, nil
	case ActionClose:
		if rc.Status == ReturnRejected {
			// A rejection stays escalatable for the whole window; only after
			// it elapses without a dispute does close become legal.
			if now.Before(rc.UpdatedAt.Add(v.EscalationWindow)) {
				return "", &InvalidTransitionError{Kind: KindReturn, Status: string(rc.Status), Action: action}
			}
		}
		return ReturnClosed, nil
	}

	return "", &InvalidTransitionError{Kind: KindReturn, Status: string(rc.Status), Action: action}
}

type disputeRule struct {
	from  []DisputeStatus
	roles []ActorRole
}

var disputeRules = map[Action]disputeRule{
	ActionOpen:       {from: []DisputeStatus{""}, roles: []ActorRole{RolePlaintiff}},
	ActionNotify:     {from: []DisputeStatus{DisputeOpened}, roles: []ActorRole{RoleSystem}},
	ActionRespond:    {from: []DisputeStatus{DisputeOpened, DisputeAwaitingResponse}, roles: []ActorRole{RoleRespondent}},
	ActionNoResponse: {from: []DisputeStatus{DisputeOpened, DisputeAwaitingResponse}, roles: []ActorRole{RoleSystem}},
	ActionAcceptProposal: {
		from:  []DisputeStatus{DisputeProposalSent},
		roles: []ActorRole{RolePlaintiff, RoleRespondent},
	},
	ActionContestProposal: {
		from:  []DisputeStatus{DisputeProposalSent},
		roles: []ActorRole{RolePlaintiff, RoleRespondent},
	},
	ActionPropose:         {from: []DisputeStatus{DisputeInMediation}, roles: []ActorRole{RoleMediator}},
	ActionProposalExpired: {from: []DisputeStatus{DisputeProposalSent}, roles: []ActorRole{RoleSystem}},
	ActionRefund:          {from: []DisputeStatus{DisputeResolved}, roles: []ActorRole{RoleSystem}},
	ActionDeny:            {from: []DisputeStatus{DisputeResolved}, roles: []ActorRole{RoleSystem}},
	ActionClose: {
		from:  []DisputeStatus{DisputeResolved, DisputeRefunded, DisputeRejected},
		roles: []ActorRole{RolePlaintiff, RoleRespondent, RoleMediator},
	},
}

func containsDisputeStatus(ss []DisputeStatus, s DisputeStatus) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// DisputeNext validates (current status, action, role) for a dispute and
// resolves the resulting status.
//
// Tie-break policies baked in here:
//   - silence is never consent: an expired proposal window forces the case
//     back to InMediation (the orchestrator applies the final-round override);
//   - a single acceptance of a mediator proposal is recorded but does not
//     change status until both parties have accepted;
//   - a plaintiff decision on a respondent proposal is unilateral.
func (v *Validator) DisputeNext(dc *DisputeCase, action Action, role ActorRole) (DisputeStatus, error) {
	rule, ok := disputeRules[action]
	if !ok {
		return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
	}

	if dc.Status == DisputeClosed {
		return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
	}

	if !containsDisputeStatus(rule.from, dc.Status) {
		return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
	}
	if !containsRole(rule.roles, role) {
		return "", &UnauthorizedError{Role: role, Action: action}
	}

	switch action {
	case ActionOpen:
		return DisputeOpened, nil

	case ActionNotify:
		return DisputeAwaitingResponse, nil

	case ActionRespond:
		return DisputeProposalSent, nil

	case ActionNoResponse:
		return DisputeInMediation, nil

	case ActionPropose:
		if dc.MediationRound >= v.MaxMediationRounds {
			return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
		}
		return DisputeProposalSent, nil

	case ActionAcceptProposal:
		if dc.Proposal == nil {
			return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
		}
		if dc.Proposal.ProposedByRole == RoleRespondent {
			if role != RolePlaintiff {
				return "", &UnauthorizedError{Role: role, Action: action}
			}
			return DisputeResolved, nil
		}
		// Mediator proposal: both parties must accept.
		plaintiff := dc.Proposal.PlaintiffAccepted || role == RolePlaintiff
		respondent := dc.Proposal.RespondentAccepted || role == RoleRespondent
		if plaintiff && respondent {
			return DisputeResolved, nil
		}
		return DisputeProposalSent, nil

	case ActionContestProposal:
		if dc.Proposal == nil {
			return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
		}
		if dc.Proposal.ProposedByRole == RoleRespondent && role != RolePlaintiff {
			return "", &UnauthorizedError{Role: role, Action: action}
		}
		return DisputeInMediation, nil

	case ActionProposalExpired:
		return DisputeInMediation, nil

	case ActionRefund:
		return DisputeRefunded, nil

	case ActionDeny:
		return DisputeRejected, nil

	case ActionClose:
		return DisputeClosed, nil
	}

	return "", &InvalidTransitionError{Kind: KindDispute, Status: string(dc.Status), Action: action}
}

// FinalRoundReached reports whether the mediation round cap is exhausted, at
// which point the pending mediator proposal is binding.
func (v *Validator) FinalRoundReached(dc *DisputeCase) bool {
	return dc.Proposal != nil &&
		dc.Proposal.ProposedByRole == RoleMediator &&
		dc.Proposal.Round >= v.MaxMediationRounds
}
