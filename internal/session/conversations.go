package session

import (
	"context"
	"fmt"

	"github.com/wolfman30/medassist-ai/internal/medical"
)

// CreateConversation starts a new conversation, makes it current and opens
// the conversation view.
func (c *Controller) CreateConversation(ctx context.Context) (medical.Conversation, error) {
	c.mu.Lock()
	if !c.loggedIn {
		c.mu.Unlock()
		return medical.Conversation{}, ErrNotLoggedIn
	}
	conv := medical.NewConversation(c.now(), func(id string) bool {
		return c.indexLocked(id) >= 0 || c.inFlight[id] || c.recommending[id]
	})
	c.conversations = append(c.conversations, conv)
	c.currentID = conv.ID
	c.view = ViewConversation
	err := c.persistLocked(ctx)
	c.unlockAndEmit()
	c.logger.Debug("conversation created", "conversation_id", conv.ID)
	if err != nil {
		return conv.Clone(), fmt.Errorf("session: create conversation: %w", err)
	}
	return conv.Clone(), nil
}

// SelectConversation makes id current and opens the conversation view.
func (c *Controller) SelectConversation(id string) error {
	c.mu.Lock()
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	c.currentID = id
	c.view = ViewConversation
	c.unlockAndEmit()
	return nil
}

// DeleteConversation removes id. Deleting the current conversation returns
// to the home view.
func (c *Controller) DeleteConversation(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	c.conversations = append(c.conversations[:idx:idx], c.conversations[idx+1:]...)
	if c.currentID == id {
		c.currentID = ""
		c.view = ViewHome
	}
	err := c.persistLocked(ctx)
	c.unlockAndEmit()
	c.logger.Debug("conversation deleted", "conversation_id", id)
	if err != nil {
		return fmt.Errorf("session: delete conversation: %w", err)
	}
	return nil
}

// ClearHistory removes every conversation and erases the stored snapshot.
func (c *Controller) ClearHistory(ctx context.Context) error {
	c.mu.Lock()
	if !c.loggedIn {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.conversations = []medical.Conversation{}
	c.currentID = ""
	c.view = ViewHome
	err := c.store.ClearConversations(ctx)
	if err != nil {
		c.metrics.ObservePersistenceError("clear_conversations")
		c.logger.Error("failed to clear stored conversations", "error", err)
	}
	c.unlockAndEmit()
	if err != nil {
		return fmt.Errorf("session: clear history: %w", err)
	}
	return nil
}

// GoHome clears the current pointer and shows the home view.
func (c *Controller) GoHome() error {
	c.mu.Lock()
	if !c.loggedIn {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.currentID = ""
	c.view = ViewHome
	c.unlockAndEmit()
	return nil
}

// ToggleSidebar flips the sidebar between expanded and collapsed.
func (c *Controller) ToggleSidebar() {
	c.mu.Lock()
	c.sidebar = !c.sidebar
	c.unlockAndEmit()
}
