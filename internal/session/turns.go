package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medassist-ai/internal/medical"
)

// SendMessage runs one turn in the current conversation: the user message
// and a pending ai placeholder are appended and persisted, the report
// endpoint is called without holding the lock, and the placeholder is then
// resolved in the originating conversation. SendMessage blocks until the
// turn completes; callers that need to keep interacting run it on a
// separate goroutine and follow progress through Subscribe.
//
// If the report call fails the placeholder stays and the error is returned;
// RetryTurn re-submits it.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	id := c.currentID
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNoConversation
	}
	if text == "" {
		c.mu.Unlock()
		return ErrEmptyMessage
	}
	if c.inFlight[id] {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	if c.recommending[id] {
		c.mu.Unlock()
		return ErrRecommendationInFlight
	}
	c.inFlight[id] = true
	epoch := c.epoch

	c.conversations[idx].Messages = append(c.conversations[idx].Messages, medical.UserMessage(text))
	errUser := c.persistLocked(ctx)
	c.unlockAndEmit()

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.metrics.ObserveTurn("dropped", 0)
		return persistErr(errUser)
	}
	if idx = c.indexLocked(id); idx < 0 {
		delete(c.inFlight, id)
		c.unlockAndEmit()
		c.metrics.ObserveTurn("dropped", 0)
		return persistErr(errUser)
	}
	c.conversations[idx].Messages = append(c.conversations[idx].Messages, medical.PendingMessage())
	errPending := c.persistLocked(ctx)
	c.unlockAndEmit()

	errReport := c.completeTurn(ctx, id, text, epoch)
	return errors.Join(persistErr(errUser, errPending), errReport)
}

// RetryTurn re-submits the user message preceding a conversation's pending
// placeholder. No messages are added.
func (c *Controller) RetryTurn(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if c.inFlight[id] {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	conv := c.conversations[idx]
	pending := conv.PendingIndex()
	text, ok := conv.UserTextBefore(pending)
	if pending < 0 || !ok {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	c.inFlight[id] = true
	epoch := c.epoch
	c.unlockAndEmit()

	return c.completeTurn(ctx, id, text, epoch)
}

// completeTurn performs the network call and the third persisted step. The
// caller must have set inFlight[id].
func (c *Controller) completeTurn(ctx context.Context, id, text string, epoch uint64) error {
	start := c.now()
	report, err := c.transport.SubmitSymptomReport(ctx, text)
	elapsed := c.now().Sub(start).Seconds()

	c.mu.Lock()
	if c.epoch != epoch {
		c.unlockAndEmit()
		c.metrics.ObserveTurn("dropped", elapsed)
		c.logger.Info("dropping report for a session that ended", "conversation_id", id)
		return nil
	}
	delete(c.inFlight, id)

	if err != nil {
		c.unlockAndEmit()
		c.metrics.ObserveTurn("error", elapsed)
		c.logger.Warn("symptom report failed", "conversation_id", id, "error", err)
		return fmt.Errorf("session: symptom report: %w", err)
	}

	idx := c.indexLocked(id)
	if idx < 0 {
		c.unlockAndEmit()
		c.metrics.ObserveTurn("dropped", elapsed)
		c.logger.Info("dropping report for a deleted conversation", "conversation_id", id)
		return nil
	}

	msgs := c.conversations[idx].Messages
	pending := c.conversations[idx].PendingIndex()
	if pending < 0 {
		c.unlockAndEmit()
		c.metrics.ObserveTurn("dropped", elapsed)
		c.logger.Warn("no pending placeholder, report discarded", "conversation_id", id)
		return ErrPlaceholderMissing
	}
	resolved, resolveErr := msgs[pending].Resolve(*report)
	if resolveErr != nil {
		c.unlockAndEmit()
		return fmt.Errorf("session: resolve placeholder: %w", resolveErr)
	}
	msgs[pending] = resolved
	saveErr := c.persistLocked(ctx)
	c.unlockAndEmit()

	c.metrics.ObserveTurn("ok", elapsed)
	c.logger.Info("symptom report received", "conversation_id", id, "department", report.Department())
	if saveErr != nil {
		return fmt.Errorf("session: save report: %w", saveErr)
	}
	return nil
}

func persistErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("session: save turn: %w", err)
		}
	}
	return nil
}
