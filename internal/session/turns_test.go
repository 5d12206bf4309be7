package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/transport"
)

func waitStarted(t *testing.T, started <-chan struct{}) {
	t.Helper()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("report request never started")
	}
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not finish")
		return nil
	}
}

func countPending(msgs []medical.Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsPending() {
			n++
		}
	}
	return n
}

func TestSendMessage_Guards(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)

	assert.ErrorIs(t, h.ctrl.SendMessage(ctx, "chest pain"), ErrNoConversation)

	_, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, h.ctrl.SendMessage(ctx, "   "), ErrEmptyMessage)
	assert.Empty(t, currentMessages(t, h.ctrl))
	assert.Empty(t, h.fake.reports)
}

func TestSendMessage_SuccessAppendsUserAndResolvedReport(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	_, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, h.ctrl.SendMessage(ctx, "chest pain"))

	msgs := currentMessages(t, h.ctrl)
	require.Len(t, msgs, 2)
	assert.Equal(t, medical.UserMessage("chest pain"), msgs[0])
	require.True(t, msgs[1].IsResolvedAI())
	assert.Equal(t, *sampleReport(), *msgs[1].Report)
	assert.Equal(t, []string{"chest pain"}, h.fake.reports)
	h.requirePersistedMatches(t)
}

func TestSendMessage_FailureKeepsPlaceholder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	_, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	h.fake.reportErr = &transport.APIError{StatusCode: 502, Message: "bad gateway"}

	err = h.ctrl.SendMessage(ctx, "dizziness")
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)

	msgs := currentMessages(t, h.ctrl)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsPending())
	assert.Empty(t, h.ctrl.Snapshot().InFlight)
	h.requirePersistedMatches(t)

	h.fake.set(func(f *fakeTransport) { f.reportErr = nil })
	require.NoError(t, h.ctrl.SendMessage(ctx, "still dizzy"), "a failed turn must not block the next one")
	assert.Len(t, currentMessages(t, h.ctrl), 4)
}

func TestSendMessage_ValidationFailureKeepsPlaceholder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	_, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	h.fake.reportErr = medical.ErrInvalidReport

	require.ErrorIs(t, h.ctrl.SendMessage(ctx, "rash"), medical.ErrInvalidReport)
	assert.True(t, currentMessages(t, h.ctrl)[1].IsPending())
}

func TestSendMessage_PlaceholderVisibleOnceAndReplacedInPlace(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	var seen [][]medical.Message
	h.ctrl.Subscribe(func(s Snapshot) {
		c, ok := s.Find(conv.ID)
		if ok {
			seen = append(seen, c.Messages)
		}
	})

	require.NoError(t, h.ctrl.SendMessage(ctx, "chest pain"))

	require.Len(t, seen, 3, "user, placeholder and resolution are each published")
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 2)
	assert.True(t, seen[1][1].IsPending())
	assert.Len(t, seen[2], 2)
	assert.True(t, seen[2][1].IsResolvedAI())
	for _, msgs := range seen {
		assert.LessOrEqual(t, countPending(msgs), 1)
	}
}

func TestSendMessage_SecondTurnWhileInFlightIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.reportGate, f.reportStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SendMessage(ctx, "chest pain") }()
	waitStarted(t, started)

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.InFlight[conv.ID])
	pending, _ := snap.Current()
	require.Len(t, pending.Messages, 2)
	assert.True(t, pending.Messages[1].IsPending())

	assert.ErrorIs(t, h.ctrl.SendMessage(ctx, "again"), ErrTurnInFlight)
	assert.ErrorIs(t, h.ctrl.RetryTurn(ctx, conv.ID), ErrTurnInFlight)
	assert.Len(t, currentMessages(t, h.ctrl), 2, "rejected call must not mutate state")

	close(gate)
	require.NoError(t, waitResult(t, done))

	msgs := currentMessages(t, h.ctrl)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsResolvedAI())
	assert.Empty(t, h.ctrl.Snapshot().InFlight)
}

func TestSendMessage_ResolvesOriginatingConversation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	first, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.reportGate, f.reportStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SendMessage(ctx, "chest pain") }()
	waitStarted(t, started)

	second, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, h.ctrl.Snapshot().CurrentID)

	close(gate)
	require.NoError(t, waitResult(t, done))

	snap := h.ctrl.Snapshot()
	origin, ok := snap.Find(first.ID)
	require.True(t, ok)
	require.Len(t, origin.Messages, 2)
	assert.True(t, origin.Messages[1].IsResolvedAI())

	other, ok := snap.Find(second.ID)
	require.True(t, ok)
	assert.Empty(t, other.Messages)
	h.requirePersistedMatches(t)
}

func TestSendMessage_DropsResultForDeletedConversation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.reportGate, f.reportStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SendMessage(ctx, "chest pain") }()
	waitStarted(t, started)

	require.NoError(t, h.ctrl.DeleteConversation(ctx, conv.ID))
	close(gate)
	require.NoError(t, waitResult(t, done))

	snap := h.ctrl.Snapshot()
	assert.Empty(t, snap.Conversations)
	assert.Empty(t, snap.InFlight)
	h.requirePersistedMatches(t)
}

func TestSendMessage_DropsResultAfterLogout(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	_, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.reportGate, f.reportStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SendMessage(ctx, "chest pain") }()
	waitStarted(t, started)

	require.NoError(t, h.ctrl.Logout(ctx))
	close(gate)
	require.NoError(t, waitResult(t, done))

	assert.Empty(t, h.ctrl.Snapshot().Conversations)
	assert.Empty(t, h.store.Keys(), "a late report must not resurrect the snapshot")
}

func TestRetryTurn_ResolvesStuckPlaceholder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	h.fake.reportErr = errors.New("timeout")
	require.Error(t, h.ctrl.SendMessage(ctx, "fever"))

	h.fake.set(func(f *fakeTransport) { f.reportErr = nil })
	require.NoError(t, h.ctrl.RetryTurn(ctx, conv.ID))

	msgs := currentMessages(t, h.ctrl)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsResolvedAI())
	assert.Equal(t, []string{"fever", "fever"}, h.fake.reports)
	h.requirePersistedMatches(t)

	assert.ErrorIs(t, h.ctrl.RetryTurn(ctx, conv.ID), ErrNothingToRetry)
	assert.ErrorIs(t, h.ctrl.RetryTurn(ctx, "missing"), ErrConversationNotFound)
}

func TestRecommendHospital_RejectedWhileTurnInFlight(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SendMessage(ctx, "chest pain"))

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.reportGate, f.reportStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SendMessage(ctx, "still hurts") }()
	waitStarted(t, started)

	assert.ErrorIs(t, h.ctrl.RecommendHospital(ctx), ErrTurnInFlight)
	assert.Empty(t, h.fake.searches)

	close(gate)
	require.NoError(t, waitResult(t, done))

	snap := h.ctrl.Snapshot()
	c, ok := snap.Find(conv.ID)
	require.True(t, ok)
	require.Len(t, c.Messages, 4)
	assert.True(t, c.Messages[3].IsResolvedAI())
	assert.False(t, c.AwaitingReport())
	assert.Empty(t, snap.InFlight)
}

func TestSendMessage_RejectedWhileRecommending(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	_, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SendMessage(ctx, "chest pain"))

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.searchGate, f.searchStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.RecommendHospital(ctx) }()
	waitStarted(t, started)

	assert.ErrorIs(t, h.ctrl.SendMessage(ctx, "still hurts"), ErrRecommendationInFlight)
	assert.Len(t, currentMessages(t, h.ctrl), 2)

	close(gate)
	require.NoError(t, waitResult(t, done))

	msgs := currentMessages(t, h.ctrl)
	require.Len(t, msgs, 3)
	assert.Equal(t, medical.MessageTypeHospital, msgs[2].Type)
	require.NoError(t, h.ctrl.SendMessage(ctx, "still hurts"))
	assert.Len(t, currentMessages(t, h.ctrl), 5)
}

func TestRetryTurn_PlaceholderFollowedByHospital(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SendMessage(ctx, "chest pain"))

	h.fake.set(func(f *fakeTransport) { f.reportErr = errors.New("timeout") })
	require.Error(t, h.ctrl.SendMessage(ctx, "still hurts"))
	require.NoError(t, h.ctrl.RecommendHospital(ctx))

	h.fake.set(func(f *fakeTransport) { f.reportErr = nil })
	require.NoError(t, h.ctrl.RetryTurn(ctx, conv.ID))

	msgs := currentMessages(t, h.ctrl)
	require.Len(t, msgs, 5)
	assert.True(t, msgs[3].IsResolvedAI(), "placeholder is resolved where it stands")
	assert.Equal(t, medical.MessageTypeHospital, msgs[4].Type)
	assert.Zero(t, countPending(msgs))
	assert.Equal(t, []string{"chest pain", "still hurts", "still hurts"}, h.fake.reports)
	h.requirePersistedMatches(t)
}

func TestSendMessage_PlaceholderRemovedMidTurnReturnsError(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.login(t)
	conv, err := h.ctrl.CreateConversation(ctx)
	require.NoError(t, err)

	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h.fake.set(func(f *fakeTransport) { f.reportGate, f.reportStarted = gate, started })

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SendMessage(ctx, "chest pain") }()
	waitStarted(t, started)

	h.ctrl.mu.Lock()
	idx := h.ctrl.indexLocked(conv.ID)
	h.ctrl.conversations[idx].Messages = h.ctrl.conversations[idx].Messages[:1]
	h.ctrl.mu.Unlock()

	close(gate)
	assert.ErrorIs(t, waitResult(t, done), ErrPlaceholderMissing)
	assert.Empty(t, h.ctrl.Snapshot().InFlight)
}
