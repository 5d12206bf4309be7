// Package persistence mirrors the session's durable fields (auth token,
// username, conversation list) into a key-value store.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/medassist-ai/internal/kvstore"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// Storage keys.
const (
	KeyToken         = "token"
	KeyUsername      = "username"
	KeyConversations = "conversations"
)

// ErrCorruptSnapshot is returned alongside an empty list when the stored
// conversation snapshot cannot be decoded.
var ErrCorruptSnapshot = errors.New("persistence: corrupt conversation snapshot")

// Adapter reads and writes the session snapshot.
type Adapter struct {
	store  kvstore.Store
	logger *logging.Logger
}

// New wraps store. The adapter never caches; every call goes to the store.
func New(store kvstore.Store, logger *logging.Logger) *Adapter {
	if store == nil {
		panic("persistence: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{store: store, logger: logger}
}

// Token returns the stored auth token, or "" when none is stored.
func (a *Adapter) Token(ctx context.Context) (string, error) {
	return a.getOptional(ctx, KeyToken)
}

// Username returns the stored username, or "" when none is stored.
func (a *Adapter) Username(ctx context.Context) (string, error) {
	return a.getOptional(ctx, KeyUsername)
}

// SaveAuth stores the token and username written on successful login.
func (a *Adapter) SaveAuth(ctx context.Context, token, username string) error {
	if token == "" {
		return errors.New("persistence: token required")
	}
	if err := a.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("persistence: save token: %w", err)
	}
	if err := a.store.Set(ctx, KeyUsername, username); err != nil {
		return fmt.Errorf("persistence: save username: %w", err)
	}
	return nil
}

// Conversations loads the stored list. A missing key yields an empty list.
// An undecodable snapshot yields an empty list and ErrCorruptSnapshot.
func (a *Adapter) Conversations(ctx context.Context) ([]medical.Conversation, error) {
	raw, err := a.getOptional(ctx, KeyConversations)
	if err != nil {
		return []medical.Conversation{}, err
	}
	if raw == "" {
		return []medical.Conversation{}, nil
	}
	var list []medical.Conversation
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		a.logger.Warn("discarding unreadable conversation snapshot", "error", err, "bytes", len(raw))
		return []medical.Conversation{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if list == nil {
		list = []medical.Conversation{}
	}
	for i := range list {
		if list[i].Messages == nil {
			list[i].Messages = []medical.Message{}
		}
	}
	return list, nil
}

// SaveConversations writes the full list as one JSON array.
func (a *Adapter) SaveConversations(ctx context.Context, list []medical.Conversation) error {
	if list == nil {
		list = []medical.Conversation{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("persistence: encode conversations: %w", err)
	}
	if err := a.store.Set(ctx, KeyConversations, string(data)); err != nil {
		return fmt.Errorf("persistence: save conversations: %w", err)
	}
	return nil
}

// ClearConversations erases the stored list.
func (a *Adapter) ClearConversations(ctx context.Context) error {
	if err := a.store.Delete(ctx, KeyConversations); err != nil {
		return fmt.Errorf("persistence: clear conversations: %w", err)
	}
	return nil
}

// Clear removes every session key. All deletes are attempted.
func (a *Adapter) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyToken, KeyUsername, KeyConversations} {
		if err := a.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("persistence: delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Adapter) getOptional(ctx context.Context, key string) (string, error) {
	v, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("persistence: load %s: %w", key, err)
	}
	return v, nil
}
