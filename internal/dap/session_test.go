package dap

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/go-dap"

	"github.com/debugbridge/dapmcp/pkg/types"
)

// newTestClient returns a Client backed by an in-memory pipe. The server end
// is drained so requests the client writes never block. The readLoop
// goroutine blocks on Receive() until the pipe is closed, so tests that only
// need to exercise the event-listener/state-machine wiring can drive it
// directly via dispatchEvent without writing real DAP wire messages.
func newTestClient(t *testing.T) (*Client, func()) {
	t.Helper()
	server, client := net.Pipe()
	go func() { _, _ = io.Copy(io.Discard, server) }()

	transport := &Transport{
		conn:   client,
		reader: bufio.NewReader(client),
		writer: bufio.NewWriter(client),
		seq:    1,
	}

	c := NewClient(transport)
	return c, func() {
		_ = c.Close()
		_ = server.Close()
	}
}

// waitForState polls session.State() until it reports want or the timeout
// elapses. Needed because dispatchEvent now runs listeners as spawned
// goroutines, so a dispatched event's effect on session state is not
// synchronous with the dispatchEvent call that triggered it.
func waitForState(t *testing.T, session *Session, want types.SessionState, timeout time.Duration) types.StateDetails {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		state, details := session.State()
		if state == want {
			return details
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for state %s, last seen %s", want, state)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestSession_StateMachine_DrivenByEvents verifies that a session's state
// changes only as a result of DAP events dispatched through its client,
// never by a direct setter call from outside the package.
func TestSession_StateMachine_DrivenByEvents(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	session := &Session{
		ID:       "test-session",
		Language: types.LanguagePython,
		Program:  "/path/to/program.py",
		Client:   client,
	}
	session.registerStateHandlers()

	client.dispatchEvent("stopped", &dap.StoppedEvent{
		Body: dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 3},
	})

	details := waitForState(t, session, types.StateStopped, time.Second)
	if details.ThreadID != 3 || details.Reason != "breakpoint" {
		t.Errorf("unexpected stop details: %+v", details)
	}

	client.dispatchEvent("continued", &dap.ContinuedEvent{})
	waitForState(t, session, types.StateRunning, time.Second)

	exitCode := 0
	client.dispatchEvent("exited", &dap.ExitedEvent{Body: dap.ExitedEventBody{ExitCode: exitCode}})
	details = waitForState(t, session, types.StateTerminated, time.Second)
	if details.ExitCode == nil || *details.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %+v", details.ExitCode)
	}
}

// TestSession_Disconnected_SetsTerminated verifies that an unexpected
// transport closure moves the session to StateTerminated, the same as an
// explicit terminated/exited event would.
func TestSession_Disconnected_SetsTerminated(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	session := &Session{
		ID:       "test-session",
		Language: types.LanguageGo,
		Program:  "/path/to/main.go",
		Client:   client,
	}
	session.registerStateHandlers()
	session.setState(types.StateRunning, types.StateDetails{})

	client.dispatchEvent("__disconnected__", nil)

	waitForState(t, session, types.StateTerminated, time.Second)
}

func TestSession_SetBreakpoint_BuffersUntilApplied(t *testing.T) {
	session := &Session{ID: "test-session", Language: types.LanguageGo}

	session.SetBreakpoint("main.go", 12, "", "", "")
	session.SetBreakpoint("main.go", 30, "n > 1", "", "")
	session.SetBreakpoint("util.go", 5, "", "2", "")

	if session.configDone {
		t.Error("configDone should still be false before applyBreakpoints runs")
	}

	if len(session.breakpoints["main.go"]) != 2 {
		t.Fatalf("expected 2 buffered breakpoints for main.go, got %d", len(session.breakpoints["main.go"]))
	}
	if session.breakpoints["main.go"][1].condition != "n > 1" {
		t.Errorf("expected condition to be buffered verbatim")
	}
	if session.breakpoints["util.go"][0].hitCondition != "2" {
		t.Errorf("expected hit condition to be buffered verbatim")
	}
}

func TestClient_WaitForEvent_TimesOut(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	_, err := client.WaitForEvent("stopped", 50*time.Millisecond)
	if err == nil {
		t.Error("expected timeout error when no event arrives")
	}
}

func TestClient_WaitForEvent_DeliversDispatchedEvent(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	resultCh := make(chan dap.Message, 1)
	go func() {
		msg, err := client.WaitForEvent("initialized", time.Second)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		resultCh <- msg
	}()

	time.Sleep(10 * time.Millisecond)
	client.dispatchEvent("initialized", &dap.InitializedEvent{})

	select {
	case <-resultCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched event to be delivered")
	}
}
