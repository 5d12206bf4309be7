package session

import "errors"

var (
	ErrNoConversation            = errors.New("session: no active conversation")
	ErrConversationNotFound      = errors.New("session: conversation not found")
	ErrEmptyMessage              = errors.New("session: message is empty")
	ErrTurnInFlight              = errors.New("session: a report is already pending for this conversation")
	ErrPlaceholderMissing        = errors.New("session: pending placeholder is gone, report discarded")
	ErrNothingToRetry            = errors.New("session: conversation is not awaiting a report")
	ErrRecommendationUnavailable = errors.New("session: no department available for a hospital recommendation")
	ErrRecommendationInFlight    = errors.New("session: a hospital recommendation is already pending")
	ErrNotLoggedIn               = errors.New("session: not logged in")
	ErrAlreadyLoggedIn           = errors.New("session: already logged in")
	ErrMissingCredentials        = errors.New("session: username and password required")
)
