// Package session owns the assistant's client-side state: authentication,
// the conversation list, the active conversation and the view being shown.
// Every mutation of durable fields is mirrored to the persistence adapter.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/internal/persistence"
	"github.com/wolfman30/medassist-ai/internal/transport"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// View names the screen the client should render.
type View string

const (
	ViewLogin        View = "login"
	ViewRegister     View = "register"
	ViewHome         View = "home"
	ViewConversation View = "conversation"
)

// RegisterPolicy decides what happens after a successful registration.
type RegisterPolicy int

const (
	// RegisterReturnsToLogin shows the login form without authenticating.
	RegisterReturnsToLogin RegisterPolicy = iota
	// RegisterAutoLogin logs in with the just-registered credentials.
	RegisterAutoLogin
)

// ParseRegisterPolicy maps a config value to a policy. Unknown values fall
// back to RegisterReturnsToLogin.
func ParseRegisterPolicy(v string) RegisterPolicy {
	switch v {
	case "auto_login", "auto-login", "autologin":
		return RegisterAutoLogin
	default:
		return RegisterReturnsToLogin
	}
}

func (p RegisterPolicy) String() string {
	if p == RegisterAutoLogin {
		return "auto_login"
	}
	return "return_to_login"
}

// Transport is the subset of the backend client the controller needs.
type Transport interface {
	Login(ctx context.Context, req transport.LoginRequest) (string, error)
	Register(ctx context.Context, req transport.RegisterRequest) error
	SubmitSymptomReport(ctx context.Context, text string) (*medical.MedicalReport, error)
	SearchHospital(ctx context.Context, department string) (*medical.HospitalRecommendation, error)
}

// Options wires the controller's collaborators.
type Options struct {
	Store            *persistence.Adapter
	Transport        Transport
	Logger           *logging.Logger
	Metrics          *metrics.SessionMetrics
	Clock            func() time.Time
	RegisterPolicy   RegisterPolicy
	HospitalFallback bool
}

// Snapshot is a deep copy of controller state.
type Snapshot struct {
	LoggedIn        bool
	Username        string
	Conversations   []medical.Conversation
	CurrentID       string
	View            View
	SidebarExpanded bool
	InFlight        map[string]bool
	Recommending    map[string]bool
}

// Current returns the active conversation, if any.
func (s Snapshot) Current() (medical.Conversation, bool) {
	return s.Find(s.CurrentID)
}

// Find returns the conversation with id.
func (s Snapshot) Find(id string) (medical.Conversation, bool) {
	if id == "" {
		return medical.Conversation{}, false
	}
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return medical.Conversation{}, false
}

// Controller is safe for concurrent use. Network calls are made without
// holding the state lock.
type Controller struct {
	store            *persistence.Adapter
	transport        Transport
	logger           *logging.Logger
	metrics          *metrics.SessionMetrics
	now              func() time.Time
	registerPolicy   RegisterPolicy
	hospitalFallback bool

	mu            sync.Mutex
	loggedIn      bool
	username      string
	conversations []medical.Conversation
	currentID     string
	view          View
	sidebar       bool
	inFlight      map[string]bool
	recommending  map[string]bool
	epoch         uint64

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

// New builds a logged-out controller showing the login view. Call Hydrate to
// restore a persisted session.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("session: persistence adapter required")
	}
	if opts.Transport == nil {
		return nil, errors.New("session: transport required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		store:            opts.Store,
		transport:        opts.Transport,
		logger:           logger,
		metrics:          opts.Metrics,
		now:              clock,
		registerPolicy:   opts.RegisterPolicy,
		hospitalFallback: opts.HospitalFallback,
		conversations:    []medical.Conversation{},
		view:             ViewLogin,
		sidebar:          true,
		inFlight:         make(map[string]bool),
		recommending:     make(map[string]bool),
		listeners:        make(map[int]func(Snapshot)),
	}, nil
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// Listeners run on the goroutine that made the change, outside the state
// lock. The returned func removes the listener.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) emit(snap Snapshot) {
	c.listenersMu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// unlockAndEmit releases the state lock and notifies listeners with the
// state as of the release.
func (c *Controller) unlockAndEmit() {
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		LoggedIn:        c.loggedIn,
		Username:        c.username,
		Conversations:   medical.CloneAll(c.conversations),
		CurrentID:       c.currentID,
		View:            c.view,
		SidebarExpanded: c.sidebar,
		InFlight:        copyFlags(c.inFlight),
		Recommending:    copyFlags(c.recommending),
	}
}

func copyFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}

func (c *Controller) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the conversation list. Failures are logged and
// counted; the in-memory list stays authoritative.
func (c *Controller) persistLocked(ctx context.Context) error {
	if err := c.store.SaveConversations(ctx, c.conversations); err != nil {
		c.logger.Error("failed to persist conversations", "error", err)
		c.metrics.ObservePersistenceError("save_conversations")
		return err
	}
	return nil
}
