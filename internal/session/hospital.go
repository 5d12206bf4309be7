package session

import (
	"context"
	"fmt"

	"github.com/wolfman30/medassist-ai/internal/medical"
)

// RecommendHospital searches for a hospital using the department of the most
// recent resolved report in the current conversation and appends the result.
// Without a department it fails with ErrRecommendationUnavailable unless the
// controller was built with HospitalFallback, in which case an empty
// department is sent. It is refused with ErrTurnInFlight while a report for
// the same conversation is outstanding.
func (c *Controller) RecommendHospital(ctx context.Context) error {
	c.mu.Lock()
	id := c.currentID
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNoConversation
	}
	if c.recommending[id] {
		c.mu.Unlock()
		return ErrRecommendationInFlight
	}
	if c.inFlight[id] {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	department := ""
	if report, ok := c.conversations[idx].LastResolvedReport(); ok {
		department = report.Department()
	}
	if department == "" && !c.hospitalFallback {
		c.mu.Unlock()
		c.metrics.ObserveHospital("unavailable")
		return ErrRecommendationUnavailable
	}
	c.recommending[id] = true
	epoch := c.epoch
	c.unlockAndEmit()

	rec, err := c.transport.SearchHospital(ctx, department)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.metrics.ObserveHospital("dropped")
		return nil
	}
	delete(c.recommending, id)
	if err != nil {
		c.unlockAndEmit()
		c.metrics.ObserveHospital("error")
		c.logger.Warn("hospital search failed", "conversation_id", id, "department", department, "error", err)
		return fmt.Errorf("session: hospital search: %w", err)
	}
	idx = c.indexLocked(id)
	if idx < 0 {
		c.unlockAndEmit()
		c.metrics.ObserveHospital("dropped")
		return nil
	}
	c.conversations[idx].Messages = append(c.conversations[idx].Messages, medical.HospitalMessage(*rec))
	saveErr := c.persistLocked(ctx)
	c.unlockAndEmit()

	c.metrics.ObserveHospital("ok")
	c.logger.Info("hospital recommended", "conversation_id", id, "hospital", rec.HospitalName)
	if saveErr != nil {
		return fmt.Errorf("session: save hospital: %w", saveErr)
	}
	return nil
}
