package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/teranga/resolution/internal/cases"
	"gitlab.com/teranga/resolution/internal/casestore"
	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/config"
	"gitlab.com/teranga/resolution/internal/resolution"
)

type fakeStore struct {
	mu       sync.Mutex
	returns  map[string]*cases.ReturnCase
	disputes map[string]*cases.DisputeCase
	events   map[string][]casestore.Event
	notifies int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		returns:  map[string]*cases.ReturnCase{},
		disputes: map[string]*cases.DisputeCase{},
		events:   map[string][]casestore.Event{},
	}
}

func copyReturn(rc *cases.ReturnCase) *cases.ReturnCase {
	cp := *rc
	if rc.ProposedRefund != nil {
		v := *rc.ProposedRefund
		cp.ProposedRefund = &v
	}
	if rc.ResolutionType != nil {
		v := *rc.ResolutionType
		cp.ResolutionType = &v
	}
	if rc.DisputeID != nil {
		v := *rc.DisputeID
		cp.DisputeID = &v
	}
	cp.Evidence = append([]string(nil), rc.Evidence...)
	cp.Timeline = append([]cases.TimelineEntry(nil), rc.Timeline...)
	return &cp
}

func copyDispute(dc *cases.DisputeCase) *cases.DisputeCase {
	cp := *dc
	if dc.OriginatingReturnCaseID != nil {
		v := *dc.OriginatingReturnCaseID
		cp.OriginatingReturnCaseID = &v
	}
	if dc.MediatorID != nil {
		v := *dc.MediatorID
		cp.MediatorID = &v
	}
	if dc.ResponseDeadline != nil {
		v := *dc.ResponseDeadline
		cp.ResponseDeadline = &v
	}
	if dc.Proposal != nil {
		v := *dc.Proposal
		cp.Proposal = &v
	}
	cp.Messages = append([]cases.DisputeMessage(nil), dc.Messages...)
	cp.Timeline = append([]cases.TimelineEntry(nil), dc.Timeline...)
	return &cp
}

func (s *fakeStore) record(caseID string, ev casestore.Event, notify *casestore.OutboxEvent) {
	s.events[caseID] = append(s.events[caseID], ev)
	if notify != nil {
		s.notifies++
	}
}

func (s *fakeStore) CreateReturnCase(_ context.Context, mut casestore.ReturnMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returns[mut.Case.ID] = copyReturn(mut.Case)
	s.record(mut.Case.ID, mut.Event, mut.Notify)
	return nil
}

func (s *fakeStore) UpdateReturnCase(_ context.Context, mut casestore.ReturnMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.returns[mut.Case.ID]; !ok {
		return cases.ErrCaseNotFound
	}
	s.returns[mut.Case.ID] = copyReturn(mut.Case)
	s.record(mut.Case.ID, mut.Event, mut.Notify)
	return nil
}

func (s *fakeStore) CreateDisputeCase(_ context.Context, mut casestore.DisputeMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disputes[mut.Case.ID] = copyDispute(mut.Case)
	s.record(mut.Case.ID, mut.Event, mut.Notify)
	return nil
}

func (s *fakeStore) UpdateDisputeCase(_ context.Context, mut casestore.DisputeMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disputes[mut.Case.ID]; !ok {
		return cases.ErrCaseNotFound
	}
	stored := copyDispute(mut.Case)
	if mut.Message != nil {
		stored.Messages = append(s.disputes[mut.Case.ID].Messages, *mut.Message)
	}
	s.disputes[mut.Case.ID] = stored
	s.record(mut.Case.ID, mut.Event, mut.Notify)
	return nil
}

func (s *fakeStore) GetReturnCase(_ context.Context, id string) (*cases.ReturnCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.returns[id]
	if !ok {
		return nil, cases.ErrCaseNotFound
	}
	return copyReturn(rc), nil
}

func (s *fakeStore) GetDisputeCase(_ context.Context, id string) (*cases.DisputeCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.disputes[id]
	if !ok {
		return nil, cases.ErrCaseNotFound
	}
	return copyDispute(dc), nil
}

func (s *fakeStore) ListReturnsByParty(context.Context, string, int, int) ([]*cases.ReturnCase, error) {
	return nil, nil
}

func (s *fakeStore) ListDisputesByParty(context.Context, string, int, int) ([]*cases.DisputeCase, error) {
	return nil, nil
}

func (s *fakeStore) ListOpenDisputeDeadlines(_ context.Context) ([]*cases.DisputeCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*cases.DisputeCase
	for _, dc := range s.disputes {
		switch dc.Status {
		case cases.DisputeOpened, cases.DisputeAwaitingResponse, cases.DisputeProposalSent:
			out = append(out, copyDispute(dc))
		}
	}
	return out, nil
}

func (s *fakeStore) ReplayReturnCase(ctx context.Context, id string) (*cases.ReturnCase, error) {
	return s.GetReturnCase(ctx, id)
}

func (s *fakeStore) ReplayDisputeCase(ctx context.Context, id string) (*cases.DisputeCase, error) {
	return s.GetDisputeCase(ctx, id)
}

func (s *fakeStore) actions(caseID string) []cases.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cases.Action, 0, len(s.events[caseID]))
	for _, ev := range s.events[caseID] {
		out = append(out, ev.Action)
	}
	return out
}

type fakeOrders struct {
	lines map[string]*clients.OrderLine
}

func (f *fakeOrders) GetOrderLine(_ context.Context, orderID string) (*clients.OrderLine, error) {
	line, ok := f.lines[orderID]
	if !ok {
		return nil, clients.ErrOrderNotFound
	}
	cp := *line
	return &cp, nil
}

type fakePayments struct {
	mu       sync.Mutex
	err      error
	requests []clients.RefundRequest
}

func (f *fakePayments) ExecuteRefund(_ context.Context, req clients.RefundRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

type fakeScoring struct {
	mu     sync.Mutex
	deltas map[string]int
}

func (f *fakeScoring) AdjustReputation(_ context.Context, partyID string, delta int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deltas == nil {
		f.deltas = map[string]int{}
	}
	f.deltas[partyID] += delta
	return nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	armed     map[string]time.Time
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: map[string]time.Time{}}
}

func (f *fakeScheduler) Arm(caseID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[caseID] = at
}

func (f *fakeScheduler) Cancel(caseID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, caseID)
	f.cancelled = append(f.cancelled, caseID)
}

type env struct {
	orch      *Orchestrator
	store     *fakeStore
	orders    *fakeOrders
	payments  *fakePayments
	scoring   *fakeScoring
	scheduler *fakeScheduler
	clock     time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store: newFakeStore(),
		orders: &fakeOrders{lines: map[string]*clients.OrderLine{
			"ord-1": {OrderID: "ord-1", BuyerID: "buyer-1", SellerID: "seller-1", Amount: 75_000, Delivered: true},
			"ord-2": {OrderID: "ord-2", BuyerID: "buyer-1", SellerID: "seller-1", Amount: 20_000, Delivered: false},
		}},
		payments:  &fakePayments{},
		scoring:   &fakeScoring{},
		scheduler: newFakeScheduler(),
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	policy := config.Policy{
		ResponseDeadline:   72 * time.Hour,
		ProposalDeadline:   72 * time.Hour,
		EscalationWindow:   7 * 24 * time.Hour,
		MaxMediationRounds: 3,
	}
	e.orch = New(e.store, e.orders, e.payments, e.scoring, e.scheduler, policy, "case-events", zap.NewNop())
	e.orch.now = func() time.Time { return e.clock }
	return e
}

func (e *env) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func pctProposal(pct float64) resolution.Proposal {
	return resolution.Proposal{Type: resolution.TypePartialRefund, Percentage: &pct}
}

// Full happy path: request through partial refund at 50%.
func TestReturnLifecycle_PartialRefund(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1",
		Reason: cases.ReasonNotAsDescribed, Description: "color differs from listing",
	})
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnRequested, rc.Status)
	assert.Equal(t, int64(75_000), rc.Amount)

	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", true, "")
	require.NoError(t, err)
	_, err = e.orch.MarkShipped(ctx, rc.ID, "buyer-1")
	require.NoError(t, err)
	_, err = e.orch.ConfirmReceipt(ctx, rc.ID, "seller-1")
	require.NoError(t, err)

	rc, err = e.orch.SubmitInspection(ctx, rc.ID, "seller-1", "half the set is fine", pctProposal(50))
	require.NoError(t, err)
	require.NotNil(t, rc.ProposedRefund)
	assert.Equal(t, int64(37_500), *rc.ProposedRefund)

	rc, err = e.orch.RefundReturn(ctx, rc.ID, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnPartiallyRefunded, rc.Status)
	require.Len(t, e.payments.requests, 1)
	assert.Equal(t, int64(37_500), e.payments.requests[0].Amount)
	assert.Equal(t, "buyer-1", e.payments.requests[0].RecipientID)

	rc, err = e.orch.CloseReturn(ctx, rc.ID, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnClosed, rc.Status)
}

func TestSubmitReturn_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "missing", Reason: cases.ReasonDamaged,
	})
	assert.ErrorIs(t, err, clients.ErrOrderNotFound)

	_, err = e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-2", Reason: cases.ReasonDamaged,
	})
	assert.ErrorIs(t, err, ErrOrderNotReturnable)

	_, err = e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "someone-else", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	var unauthorized *cases.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)

	_, err = e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: "because",
	})
	var missing *cases.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestRefundReturn_PaymentFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	require.NoError(t, err)
	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", true, "")
	require.NoError(t, err)
	_, err = e.orch.MarkShipped(ctx, rc.ID, "buyer-1")
	require.NoError(t, err)
	_, err = e.orch.ConfirmReceipt(ctx, rc.ID, "seller-1")
	require.NoError(t, err)
	_, err = e.orch.SubmitInspection(ctx, rc.ID, "seller-1", "broken", resolution.Proposal{Type: resolution.TypeFullRefund})
	require.NoError(t, err)

	e.payments.err = &cases.DownstreamError{Service: "payment", Err: errors.New("gateway down")}
	_, err = e.orch.RefundReturn(ctx, rc.ID, "seller-1")
	var downstream *cases.DownstreamError
	require.ErrorAs(t, err, &downstream)

	got, err := e.orch.GetReturnCase(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnInspected, got.Status)
	actions := e.store.actions(rc.ID)
	assert.Equal(t, cases.ActionRefundFailed, actions[len(actions)-1])

	// The refund can be retried once the gateway recovers.
	e.payments.err = nil
	got, err = e.orch.RefundReturn(ctx, rc.ID, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnRefunded, got.Status)
}

func TestEscalateToDispute_LocksReturn(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	require.NoError(t, err)
	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", false, "no damage visible")
	require.NoError(t, err)

	dc, err := e.orch.EscalateToDispute(ctx, rc.ID, "buyer-1", cases.DisputeDamaged, "item arrived broken")
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeOpened, dc.Status)
	require.NotNil(t, dc.OriginatingReturnCaseID)
	assert.Equal(t, rc.ID, *dc.OriginatingReturnCaseID)
	assert.Equal(t, int64(75_000), dc.Amount)
	assert.Contains(t, e.scheduler.armed, dc.ID)

	locked, err := e.orch.GetReturnCase(ctx, rc.ID)
	require.NoError(t, err)
	assert.True(t, locked.Escalated)
	require.NotNil(t, locked.DisputeID)

	// Every further action on the escalated return is rejected.
	var invalid *cases.InvalidTransitionError
	_, err = e.orch.CloseReturn(ctx, rc.ID, "buyer-1")
	assert.ErrorAs(t, err, &invalid)
	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", true, "")
	assert.ErrorAs(t, err, &invalid)
}

func TestCloseRejectedReturn_WaitsForEscalationWindow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	require.NoError(t, err)
	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", false, "no defect found")
	require.NoError(t, err)

	var invalid *cases.InvalidTransitionError
	_, err = e.orch.CloseReturn(ctx, rc.ID, "seller-1")
	assert.ErrorAs(t, err, &invalid)

	e.advance(7*24*time.Hour + time.Minute)
	got, err := e.orch.CloseReturn(ctx, rc.ID, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnClosed, got.Status)

	// The undisputed rejection counts in the seller's favor.
	assert.Equal(t, 1, e.scoring.deltas["seller-1"])
}

// A dispute whose respondent never answers lands in mediation when the
// response deadline fires.
func TestDispute_SilentRespondentGoesToMediation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1",
		Type: cases.DisputeNotConforming, Description: "wrong model shipped",
	})
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeOpened, dc.Status)
	assert.Contains(t, e.scheduler.armed, dc.ID)

	require.NoError(t, e.orch.MarkDisputeNotified(ctx, dc.ID))
	got, err := e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeAwaitingResponse, got.Status)

	// Notification redelivery is a no-op.
	require.NoError(t, e.orch.MarkDisputeNotified(ctx, dc.ID))

	e.advance(72*time.Hour + time.Minute)
	e.orch.HandleDeadline(ctx, dc.ID)

	got, err = e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeInMediation, got.Status)
	assert.Nil(t, got.ResponseDeadline)

	// The respondent's window is gone for good.
	_, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "late answer", nil, pctProposal(10))
	var invalid *cases.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

// A response arriving after the deadline elapsed but before the timer fired
// is stale, not a transition.
func TestDispute_LateResponseBeforeTimerFires(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeDamaged,
	})
	require.NoError(t, err)

	e.advance(72*time.Hour + time.Minute)
	_, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "sorry", nil, pctProposal(10))
	assert.ErrorIs(t, err, cases.ErrDeadlineAlreadyElapsed)
}

func TestDispute_RespondentOfferAcceptedByPlaintiff(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeQualityIssue,
	})
	require.NoError(t, err)

	dc, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "offering 40%", nil, pctProposal(40))
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeProposalSent, dc.Status)
	require.NotNil(t, dc.Proposal)
	assert.Equal(t, cases.RoleRespondent, dc.Proposal.ProposedByRole)

	// The respondent cannot accept their own offer.
	_, err = e.orch.RespondToProposal(ctx, dc.ID, "seller-1", true)
	var unauthorized *cases.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)

	dc, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", true)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeRefunded, dc.Status)
	require.Len(t, e.payments.requests, 1)
	assert.Equal(t, int64(30_000), e.payments.requests[0].Amount)
}

func TestDispute_MediatorProposalNeedsBothParties(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc := e.openMediatedDispute(t)

	dc, err := e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(30), "split the difference")
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeProposalSent, dc.Status)
	assert.Equal(t, 1, dc.MediationRound)

	dc, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", true)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeProposalSent, dc.Status)
	assert.True(t, dc.Proposal.PlaintiffAccepted)
	assert.Empty(t, e.payments.requests)

	dc, err = e.orch.RespondToProposal(ctx, dc.ID, "seller-1", true)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeRefunded, dc.Status)
	require.Len(t, e.payments.requests, 1)
	assert.Equal(t, int64(22_500), e.payments.requests[0].Amount)
}

// Round cap: the third proposal is final; contesting it applies it anyway and
// no fourth round can be opened.
func TestDispute_FinalRoundBinds(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc := e.openMediatedDispute(t)

	for round := 1; round <= 2; round++ {
		_, err := e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(20), "offer")
		require.NoError(t, err)
		_, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", false)
		require.NoError(t, err)
	}

	got, err := e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(25), "final offer")
	require.NoError(t, err)
	assert.Equal(t, 3, got.MediationRound)

	got, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", false)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeRefunded, got.Status)
	assert.Nil(t, got.Proposal)
	require.Len(t, e.payments.requests, 1)
	assert.Equal(t, int64(18_750), e.payments.requests[0].Amount)
}

func TestDispute_RoundCapRejectsFourthProposal(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc := e.openMediatedDispute(t)
	for round := 1; round <= 3; round++ {
		_, err := e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(20), "offer")
		require.NoError(t, err)
		if round < 3 {
			_, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", false)
			require.NoError(t, err)
		}
	}

	// Silence on the final proposal also applies it.
	e.advance(72*time.Hour + time.Minute)
	e.orch.HandleDeadline(ctx, dc.ID)

	got, err := e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeRefunded, got.Status)

	_, err = e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(10), "one more")
	var invalid *cases.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

// Silence is never consent below the cap: an expired proposal reopens
// mediation instead of resolving.
func TestDispute_ExpiredProposalReturnsToMediation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc := e.openMediatedDispute(t)
	_, err := e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(30), "offer")
	require.NoError(t, err)

	e.advance(72*time.Hour + time.Minute)
	e.orch.HandleDeadline(ctx, dc.ID)

	got, err := e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeInMediation, got.Status)
	assert.Nil(t, got.Proposal)
	assert.Empty(t, e.payments.requests)
}

func TestDispute_DenialResolutionRejectsCase(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeOther,
	})
	require.NoError(t, err)

	dc, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "claim is unfounded", nil,
		resolution.Proposal{Type: resolution.TypeDenial})
	require.NoError(t, err)

	dc, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", true)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeRejected, dc.Status)
	assert.Empty(t, e.payments.requests)

	// Seller gains reputation for a rejected direct dispute.
	_, err = e.orch.CloseDispute(ctx, dc.ID, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.scoring.deltas["seller-1"])
}

func TestCloseDispute_ReputationPenalties(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	require.NoError(t, err)
	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", false, "disagree")
	require.NoError(t, err)
	dc, err := e.orch.EscalateToDispute(ctx, rc.ID, "buyer-1", cases.DisputeDamaged, "broken")
	require.NoError(t, err)

	_, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "fine", nil, resolution.Proposal{Type: resolution.TypeFullRefund})
	require.NoError(t, err)
	_, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", true)
	require.NoError(t, err)

	_, err = e.orch.CloseDispute(ctx, dc.ID, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, -2, e.scoring.deltas["seller-1"])
}

// Only the case seller may execute the inspected refund; any other
// authenticated account is rejected before the payment service is touched.
func TestRefundReturn_StrangerRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc := e.inspectedReturn(t)

	var unauthorized *cases.UnauthorizedError
	for _, actor := range []string{"mallory", "buyer-1"} {
		_, err := e.orch.RefundReturn(ctx, rc.ID, actor)
		require.ErrorAs(t, err, &unauthorized, "actor %s", actor)
	}
	assert.Empty(t, e.payments.requests)

	got, err := e.orch.GetReturnCase(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnInspected, got.Status)
}

func TestCloseReturn_StrangerRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc := e.inspectedReturn(t)
	rc, err := e.orch.RefundReturn(ctx, rc.ID, "seller-1")
	require.NoError(t, err)

	var unauthorized *cases.UnauthorizedError
	_, err = e.orch.CloseReturn(ctx, rc.ID, "mallory")
	require.ErrorAs(t, err, &unauthorized)

	got, err := e.orch.GetReturnCase(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.ReturnRefunded, got.Status)
}

func TestCloseDispute_StrangerRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeOther,
	})
	require.NoError(t, err)
	_, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "unfounded", nil,
		resolution.Proposal{Type: resolution.TypeDenial})
	require.NoError(t, err)
	got, err := e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", true)
	require.NoError(t, err)
	require.Equal(t, cases.DisputeRejected, got.Status)

	var unauthorized *cases.UnauthorizedError
	_, err = e.orch.CloseDispute(ctx, dc.ID, "mallory")
	require.ErrorAs(t, err, &unauthorized)
	assert.Empty(t, e.scoring.deltas)

	_, err = e.orch.CloseDispute(ctx, dc.ID, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.scoring.deltas["seller-1"])
}

// The first proposer is the assigned mediator for the whole case.
func TestMediatorPropose_SecondMediatorRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc := e.openMediatedDispute(t)
	_, err := e.orch.MediatorPropose(ctx, dc.ID, "mediator-1", pctProposal(30), "offer")
	require.NoError(t, err)
	_, err = e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", false)
	require.NoError(t, err)

	var unauthorized *cases.UnauthorizedError
	_, err = e.orch.MediatorPropose(ctx, dc.ID, "mediator-2", pctProposal(50), "taking over")
	require.ErrorAs(t, err, &unauthorized)

	got, err := e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MediatorID)
	assert.Equal(t, "mediator-1", *got.MediatorID)
	assert.Equal(t, 1, got.MediationRound)
}

// A pending proposal exists only until the dispute settles.
func TestDispute_ResolutionClearsProposal(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeQualityIssue,
	})
	require.NoError(t, err)
	_, err = e.orch.RespondToDispute(ctx, dc.ID, "seller-1", "offering 40%", nil, pctProposal(40))
	require.NoError(t, err)

	got, err := e.orch.RespondToProposal(ctx, dc.ID, "buyer-1", true)
	require.NoError(t, err)
	assert.Equal(t, cases.DisputeRefunded, got.Status)
	assert.Nil(t, got.Proposal)

	stored, err := e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Proposal)
}

func TestCloseReturn_AdjustsSellerReputation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc := e.inspectedReturn(t)
	rc, err := e.orch.RefundReturn(ctx, rc.ID, "seller-1")
	require.NoError(t, err)

	_, err = e.orch.CloseReturn(ctx, rc.ID, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, -1, e.scoring.deltas["seller-1"])
}

func TestConcurrentModificationRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	require.NoError(t, err)

	unlock, err := e.orch.lockCase(rc.ID)
	require.NoError(t, err)
	defer unlock()

	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", true, "")
	assert.ErrorIs(t, err, cases.ErrConcurrentModification)
}

func TestDeadlineFireDuringMutationIsRearmed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeDamaged,
	})
	require.NoError(t, err)

	e.scheduler.armed = map[string]time.Time{}
	unlock, err := e.orch.lockCase(dc.ID)
	require.NoError(t, err)
	e.orch.HandleDeadline(ctx, dc.ID)
	unlock()

	assert.Contains(t, e.scheduler.armed, dc.ID)
}

func TestRearmDeadlines(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeDamaged,
	})
	require.NoError(t, err)

	e.scheduler.armed = map[string]time.Time{}
	require.NoError(t, e.orch.RearmDeadlines(ctx))
	assert.Contains(t, e.scheduler.armed, dc.ID)
}

// inspectedReturn drives a fresh return through inspection with a full
// refund proposal.
func (e *env) inspectedReturn(t *testing.T) *cases.ReturnCase {
	t.Helper()
	ctx := context.Background()

	rc, err := e.orch.SubmitReturn(ctx, SubmitReturnInput{
		BuyerID: "buyer-1", OrderID: "ord-1", Reason: cases.ReasonDamaged,
	})
	require.NoError(t, err)
	_, err = e.orch.DecideReturn(ctx, rc.ID, "seller-1", true, "")
	require.NoError(t, err)
	_, err = e.orch.MarkShipped(ctx, rc.ID, "buyer-1")
	require.NoError(t, err)
	_, err = e.orch.ConfirmReceipt(ctx, rc.ID, "seller-1")
	require.NoError(t, err)
	rc, err = e.orch.SubmitInspection(ctx, rc.ID, "seller-1", "confirmed damage",
		resolution.Proposal{Type: resolution.TypeFullRefund})
	require.NoError(t, err)
	return rc
}

// openMediatedDispute opens a dispute and drives it into mediation through
// respondent silence.
func (e *env) openMediatedDispute(t *testing.T) *cases.DisputeCase {
	t.Helper()
	ctx := context.Background()

	dc, err := e.orch.OpenDispute(ctx, OpenDisputeInput{
		PlaintiffID: "buyer-1", OrderID: "ord-1", Type: cases.DisputeNotConforming,
	})
	require.NoError(t, err)

	e.advance(72*time.Hour + time.Minute)
	e.orch.HandleDeadline(ctx, dc.ID)

	got, err := e.orch.GetDisputeCase(ctx, dc.ID)
	require.NoError(t, err)
	require.Equal(t, cases.DisputeInMediation, got.Status)
	return got
}
