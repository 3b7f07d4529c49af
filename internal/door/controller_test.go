package door

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jredh-dev/doorman/internal/notify"
	"github.com/jredh-dev/doorman/internal/store"
)

// recordingStore wraps a MemoryStore and counts writes.
type recordingStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	merges   []store.Update
	getErr   error
	mergeErr error
	block    bool // block until ctx is done
}

func (s *recordingStore) Get(ctx context.Context) (*store.DoorState, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx)
}

func (s *recordingStore) Merge(ctx context.Context, u store.Update) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.mergeErr != nil {
		return s.mergeErr
	}
	s.mu.Lock()
	s.merges = append(s.merges, u)
	s.mu.Unlock()
	return s.MemoryStore.Merge(ctx, u)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
	// seen captures the store state at send time, to check ordering.
	st   store.Store
	seen []*store.DoorState
}

func (n *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if n.st != nil {
		state, _ := n.st.Get(ctx)
		n.seen = append(n.seen, state)
	}
	return n.err
}

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestController(t *testing.T) (*Controller, *recordingStore, *fakeNotifier) {
	t.Helper()
	s := &recordingStore{MemoryStore: store.NewMemory(func() time.Time { return testNow })}
	n := &fakeNotifier{st: s}
	return NewController(s, n), s, n
}

func TestHandle_OpenFromWhatsApp(t *testing.T) {
	c, s, n := newTestController(t)

	res, err := c.Handle(context.Background(), "whatsapp:+1555", "Open")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Command != Open || !res.IsOpen || !res.Notified {
		t.Errorf("result = %+v", res)
	}
	if res.Message != "The door is now open." {
		t.Errorf("Message = %q", res.Message)
	}

	state, _ := s.Get(context.Background())
	want := store.DoorState{IsOpen: true, LastUpdated: testNow, Source: store.SourceWhatsApp, From: "whatsapp:+1555"}
	if state == nil || *state != want {
		t.Errorf("stored state = %+v, want %+v", state, want)
	}

	if len(n.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.sent))
	}
	if n.sent[0].To != "whatsapp:+1555" || n.sent[0].Body != "The door is now open." {
		t.Errorf("notification = %+v", n.sent[0])
	}
	// The write must be visible before the confirmation goes out.
	if n.seen[0] == nil || !n.seen[0].IsOpen {
		t.Errorf("notification sent before state persisted: %+v", n.seen[0])
	}
}

func TestHandle_CloseFromWebUI(t *testing.T) {
	c, s, n := newTestController(t)

	res, err := c.Handle(context.Background(), "web-client", "close")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsOpen || res.Notified {
		t.Errorf("result = %+v", res)
	}

	state, _ := s.Get(context.Background())
	if state.IsOpen || state.Source != store.SourceWebUI || state.From != "web-client" {
		t.Errorf("stored state = %+v", state)
	}
	if len(n.sent) != 0 {
		t.Errorf("expected no notifications for web UI, got %d", len(n.sent))
	}
}

func TestHandle_IdempotentConvergence(t *testing.T) {
	seqs := [][]string{
		{"open", "open"},
		{"close", "open"},
		{"open", "close", "close"},
		{"close"},
		{"open", "status", "banana", "close", "open"},
	}
	for _, seq := range seqs {
		c, s, _ := newTestController(t)
		var prev time.Time
		for _, text := range seq {
			res, err := c.Handle(context.Background(), "web-client", text)
			cmd := ParseCommand(text)
			if cmd == Unknown {
				if !errors.Is(err, ErrUnknownCommand) {
					t.Fatalf("%v: %q err = %v", seq, text, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%v: %q: %v", seq, text, err)
			}
			if cmd == Status {
				continue
			}
			if res.IsOpen != (cmd == Open) {
				t.Errorf("%v: %q gave isOpen=%v", seq, text, res.IsOpen)
			}
			state, _ := s.Get(context.Background())
			if state.IsOpen != (cmd == Open) {
				t.Errorf("%v: stored isOpen=%v after %q", seq, state.IsOpen, text)
			}
			if !state.LastUpdated.After(prev) {
				t.Errorf("%v: lastUpdated %v not after %v", seq, state.LastUpdated, prev)
			}
			prev = state.LastUpdated
		}
	}
}

func TestHandle_UnknownCommand(t *testing.T) {
	c, s, n := newTestController(t)

	res, err := c.Handle(context.Background(), "whatsapp:+1555", "banana")
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	var uc *UnknownCommandError
	if !errors.As(err, &uc) {
		t.Fatalf("err = %v, want *UnknownCommandError", err)
	}
	if uc.Help != HelpMessage || uc.Text != "banana" {
		t.Errorf("UnknownCommandError = %+v", uc)
	}
	if len(s.merges) != 0 {
		t.Errorf("expected no store writes, got %d", len(s.merges))
	}
	if len(n.sent) != 1 || n.sent[0].Body != HelpMessage {
		t.Errorf("expected one help notification, got %+v", n.sent)
	}
}

func TestHandle_EmptyInput(t *testing.T) {
	c, _, n := newTestController(t)

	_, err := c.Handle(context.Background(), "", "")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("expected no notifications for empty sender, got %d", len(n.sent))
	}
}

func TestHandle_Status(t *testing.T) {
	c, s, n := newTestController(t)
	_ = s.MemoryStore.Merge(context.Background(), store.Update{IsOpen: true, Source: store.SourceWhatsApp, From: "whatsapp:+1777"})

	res, err := c.Handle(context.Background(), "whatsapp:+1555", "status")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Command != Status || res.Message != StatusAck || !res.Notified {
		t.Errorf("result = %+v", res)
	}
	if len(s.merges) != 0 {
		t.Errorf("status must not write, got %d writes", len(s.merges))
	}
	if len(n.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.sent))
	}
	body := n.sent[0].Body
	for _, want := range []string{"open", "2026-10-14T09:30:00Z", "whatsapp:+1777"} {
		if !strings.Contains(body, want) {
			t.Errorf("status body missing %q: %q", want, body)
		}
	}
}

func TestHandle_StatusNoRecord(t *testing.T) {
	c, _, n := newTestController(t)

	if _, err := c.Handle(context.Background(), "whatsapp:+1555", "status"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0].Body != NoActivityMessage {
		t.Errorf("notifications = %+v", n.sent)
	}
}

func TestHandle_StoreFailureSendsNothing(t *testing.T) {
	c, s, n := newTestController(t)
	s.mergeErr = errors.New("permission denied")

	res, err := c.Handle(context.Background(), "whatsapp:+1555", "open")
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "merge" {
		t.Fatalf("err = %v, want merge StoreError", err)
	}
	if !errors.Is(err, ErrStore) {
		t.Error("errors.Is(err, ErrStore) = false")
	}
	if len(n.sent) != 0 {
		t.Errorf("confirmation sent despite failed write: %+v", n.sent)
	}
}

func TestHandle_StatusReadFailure(t *testing.T) {
	c, s, n := newTestController(t)
	s.getErr = errors.New("unavailable")

	_, err := c.Handle(context.Background(), "whatsapp:+1555", "status")
	if !errors.Is(err, ErrStore) {
		t.Fatalf("err = %v, want ErrStore", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("expected no notification, got %d", len(n.sent))
	}
}

func TestHandle_NotifyFailurePolicy(t *testing.T) {
	c, s, n := newTestController(t)
	n.err = errors.New("twilio 503")

	// open/close: state persisted, request still succeeds.
	res, err := c.Handle(context.Background(), "whatsapp:+1555", "open")
	if err != nil {
		t.Fatalf("open with failing notifier: %v", err)
	}
	if !res.IsOpen || res.Notified {
		t.Errorf("result = %+v", res)
	}
	if state, _ := s.Get(context.Background()); state == nil || !state.IsOpen {
		t.Errorf("state not persisted: %+v", state)
	}

	// unknown: still a validation error, not a notify error.
	_, err = c.Handle(context.Background(), "whatsapp:+1555", "banana")
	if !errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrNotify) {
		t.Errorf("unknown with failing notifier: err = %v", err)
	}

	// status: the reply is the only delivery, so the failure surfaces.
	_, err = c.Handle(context.Background(), "whatsapp:+1555", "status")
	var ne *NotifyError
	if !errors.As(err, &ne) || ne.To != "whatsapp:+1555" {
		t.Errorf("status with failing notifier: err = %v, want *NotifyError", err)
	}
}

func TestHandle_NoNotifierConfigured(t *testing.T) {
	s := store.NewMemory(nil)
	c := NewController(s, nil)

	for _, text := range []string{"open", "status", "banana"} {
		res, err := c.Handle(context.Background(), "whatsapp:+1555", text)
		if text == "banana" {
			if !errors.Is(err, ErrUnknownCommand) {
				t.Errorf("%q: err = %v", text, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if res.Notified {
			t.Errorf("%q: Notified = true without a notifier", text)
		}
	}
}

func TestHandle_StoreTimeout(t *testing.T) {
	s := &recordingStore{MemoryStore: store.NewMemory(nil), block: true}
	n := &fakeNotifier{}
	c := NewController(s, n, WithStoreTimeout(20*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := c.Handle(context.Background(), "whatsapp:+1555", "close")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStore) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want store deadline error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not honor the store timeout")
	}
	if len(n.sent) != 0 {
		t.Errorf("expected no notifications, got %d", len(n.sent))
	}
}

func TestState(t *testing.T) {
	c, s, _ := newTestController(t)

	state, err := c.State(context.Background())
	if err != nil || state != nil {
		t.Fatalf("State on empty store = %+v, %v", state, err)
	}

	_ = s.Merge(context.Background(), store.Update{IsOpen: true, Source: store.SourceWebUI, From: "web-client"})
	state, err = c.State(context.Background())
	if err != nil || state == nil || !state.IsOpen {
		t.Fatalf("State = %+v, %v", state, err)
	}

	s.getErr = errors.New("boom")
	if _, err := c.State(context.Background()); !errors.Is(err, ErrStore) {
		t.Errorf("State err = %v, want ErrStore", err)
	}
}
