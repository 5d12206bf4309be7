package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/session"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// Controller is the set of intents the terminal can issue.
type Controller interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) func()
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, req session.RegisterRequest) error
	Logout(ctx context.Context) error
	ShowRegister() error
	ShowLogin() error
	CreateConversation(ctx context.Context) (medical.Conversation, error)
	SelectConversation(id string) error
	DeleteConversation(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
	GoHome() error
	ToggleSidebar()
	SendMessage(ctx context.Context, text string) error
	RetryTurn(ctx context.Context, id string) error
	RecommendHospital(ctx context.Context) error
}

// errQuit ends the command loop.
var errQuit = errors.New("view: quit")

var errHospitalRecommended = errors.New("view: hospital already recommended")

// Terminal reads commands line by line and prints the rendered screen
// whenever it changes. Report and hospital requests run in the background
// so the user can keep navigating while they are pending.
type Terminal struct {
	ctrl   Controller
	in     *bufio.Scanner
	logger *logging.Logger

	outMu sync.Mutex
	out   io.Writer
	last  string

	wg sync.WaitGroup
}

// NewTerminal wires a terminal to ctrl.
func NewTerminal(ctrl Controller, in io.Reader, out io.Writer, logger *logging.Logger) *Terminal {
	if logger == nil {
		logger = logging.Default()
	}
	return &Terminal{
		ctrl:   ctrl,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger,
	}
}

// Run processes input until EOF, /quit, or ctx is cancelled. Background
// requests are waited for before Run returns.
func (t *Terminal) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		t.wg.Wait()
	}()

	unsubscribe := t.ctrl.Subscribe(t.show)
	defer unsubscribe()
	t.show(t.ctrl.Snapshot())

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.prompt()
		line, ok := t.readLine()
		if !ok {
			return t.in.Err()
		}
		if err := t.Handle(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			t.printf("! %s\n", describe(err))
		}
	}
}

// Handle executes one input line.
func (t *Terminal) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return t.send(ctx, line)
	}
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		t.forceShow()
		return nil
	case "/login":
		if len(args) < 2 {
			return errors.New("usage: /login <username> <password>")
		}
		return t.ctrl.Login(ctx, args[0], args[1])
	case "/register":
		if len(args) < 2 {
			return t.ctrl.ShowRegister()
		}
		return t.register(ctx, args[0], args[1])
	case "/back":
		return t.ctrl.ShowLogin()
	case "/logout":
		return t.ctrl.Logout(ctx)
	case "/new":
		_, err := t.ctrl.CreateConversation(ctx)
		return err
	case "/open":
		id, err := t.resolveIndex(args)
		if err != nil {
			return err
		}
		return t.ctrl.SelectConversation(id)
	case "/delete":
		id, err := t.resolveIndex(args)
		if err != nil {
			return err
		}
		return t.ctrl.DeleteConversation(ctx, id)
	case "/clear":
		return t.ctrl.ClearHistory(ctx)
	case "/home":
		return t.ctrl.GoHome()
	case "/sidebar":
		t.ctrl.ToggleSidebar()
		return nil
	case "/hospital":
		if err := t.hospitalAllowed(); err != nil {
			return err
		}
		return t.background(ctx, "hospital", t.ctrl.RecommendHospital)
	case "/retry":
		id := t.ctrl.Snapshot().CurrentID
		if id == "" {
			return session.ErrNoConversation
		}
		return t.background(ctx, "retry", func(ctx context.Context) error {
			return t.ctrl.RetryTurn(ctx, id)
		})
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// Wait blocks until background requests finish.
func (t *Terminal) Wait() {
	t.wg.Wait()
}

func (t *Terminal) send(ctx context.Context, text string) error {
	snap := t.ctrl.Snapshot()
	if !snap.LoggedIn {
		return session.ErrNotLoggedIn
	}
	if snap.CurrentID == "" {
		return session.ErrNoConversation
	}
	if snap.InFlight[snap.CurrentID] {
		return session.ErrTurnInFlight
	}
	return t.background(ctx, "report", func(ctx context.Context) error {
		return t.ctrl.SendMessage(ctx, text)
	})
}

// hospitalAllowed mirrors the rendered affordance: once a recommendation is
// shown or running the command is disabled for that conversation.
func (t *Terminal) hospitalAllowed() error {
	snap := t.ctrl.Snapshot()
	conv, ok := snap.Current()
	if !ok {
		return session.ErrNoConversation
	}
	switch HospitalLabel(conv, snap) {
	case HospitalRunning:
		return session.ErrRecommendationInFlight
	case HospitalRecommended:
		return errHospitalRecommended
	}
	if snap.InFlight[conv.ID] {
		return session.ErrTurnInFlight
	}
	return nil
}

func (t *Terminal) background(ctx context.Context, name string, fn func(context.Context) error) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := fn(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			t.logger.Warn("background request failed", "request", name, "error", err)
			t.printf("! %s\n", describe(err))
		}
	}()
	return nil
}

func (t *Terminal) register(ctx context.Context, username, password string) error {
	var info medical.BasicInfo
	if raw := t.ask("Age: "); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			return errors.New("age must be a whole number")
		}
		info.Age = age
	}
	info.Gender = t.ask("Gender: ")
	info.MedicalHistory = t.ask("Medical history: ")
	info.FamilyHistory = t.ask("Family history: ")
	return t.ctrl.Register(ctx, session.RegisterRequest{
		Username:  username,
		Password:  password,
		BasicInfo: info,
	})
}

func (t *Terminal) resolveIndex(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected a conversation number")
	}
	n, err := strconv.Atoi(args[0])
	snap := t.ctrl.Snapshot()
	if err != nil || n < 1 || n > len(snap.Conversations) {
		return "", fmt.Errorf("no conversation %q", args[0])
	}
	return snap.Conversations[n-1].ID, nil
}

func (t *Terminal) ask(label string) string {
	t.printf("%s", label)
	line, _ := t.readLine()
	return strings.TrimSpace(line)
}

func (t *Terminal) readLine() (string, bool) {
	if !t.in.Scan() {
		return "", false
	}
	return t.in.Text(), true
}

func (t *Terminal) prompt() {
	t.printf("> ")
}

// show prints the screen for snap when it differs from the last one printed.
func (t *Terminal) show(snap session.Snapshot) {
	screen := Render(snap)
	t.outMu.Lock()
	defer t.outMu.Unlock()
	if screen == t.last {
		return
	}
	t.last = screen
	fmt.Fprint(t.out, "\n"+screen)
}

func (t *Terminal) forceShow() {
	t.outMu.Lock()
	t.last = ""
	t.outMu.Unlock()
	t.show(t.ctrl.Snapshot())
}

func (t *Terminal) printf(format string, args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// describe turns controller errors into short user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrRecommendationUnavailable):
		return "A hospital can be recommended once a report with a department is available."
	case errors.Is(err, errHospitalRecommended):
		return "A hospital has already been recommended for this conversation."
	case errors.Is(err, session.ErrRecommendationInFlight):
		return "Still looking for a hospital."
	case errors.Is(err, session.ErrTurnInFlight):
		return "Still waiting for the previous report."
	case errors.Is(err, session.ErrNoConversation):
		return "Start a conversation with /new first."
	case errors.Is(err, session.ErrNotLoggedIn):
		return "Please sign in first."
	case errors.Is(err, medical.ErrInvalidReport):
		return "The assistant returned an unreadable report. Use /retry to try again."
	case errors.Is(err, medical.ErrInvalidHospital):
		return "The hospital search returned an unreadable answer."
	default:
		return err.Error()
	}
}
