package dap

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/debugbridge/dapmcp/pkg/types"
)

// pendingBreakpoint is a breakpoint requested before configurationDone. It is
// buffered and replayed once the adapter is ready to accept it.
type pendingBreakpoint struct {
	line         int
	condition    string
	hitCondition string
	logMessage   string
}

// Session represents an active debug session. Its state and details fields
// are written by the DAP event handlers that Launch registers, by Launch
// itself for the handshake states (Initializing, Initialized, Launching, and
// Failed when a handshake step errors), and by session teardown. Once Launch
// has returned successfully, only the event handlers and teardown write them.
type Session struct {
	ID        string
	Language  types.Language
	Program   string
	Client    *Client
	Process   *exec.Cmd
	PID       int
	CreatedAt time.Time

	mu      sync.RWMutex
	state   types.SessionState
	details types.StateDetails

	bpMu        sync.Mutex
	breakpoints map[string][]pendingBreakpoint // source path -> requested breakpoints
	configDone  bool
}

func (s *Session) setState(state types.SessionState, details types.StateDetails) {
	s.mu.Lock()
	s.state = state
	s.details = details
	s.mu.Unlock()
}

// State returns the session's current lifecycle state and its details.
func (s *Session) State() (types.SessionState, types.StateDetails) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.details
}

// GetInfo returns session info for reporting to the MCP client.
func (s *Session) GetInfo() types.SessionInfo {
	state, details := s.State()
	return types.SessionInfo{
		SessionID: s.ID,
		Language:  s.Language,
		State:     state,
		Details:   details,
		PID:       s.PID,
		Program:   s.Program,
	}
}

// registerStateHandlers wires the event listeners that drive the session's
// state machine for the remainder of its life. Installed once by Launch,
// after initialize and before the launch request is sent, so that a stop or
// exit arriving mid-handshake is still observed.
func (s *Session) registerStateHandlers() {
	s.Client.On("stopped", func(msg dap.Message) {
		ev, ok := msg.(*dap.StoppedEvent)
		if !ok {
			return
		}
		s.setState(types.StateStopped, types.StateDetails{
			ThreadID: ev.Body.ThreadId,
			Reason:   ev.Body.Reason,
		})
	})

	s.Client.On("continued", func(msg dap.Message) {
		s.setState(types.StateRunning, types.StateDetails{})
	})

	s.Client.On("terminated", func(msg dap.Message) {
		s.setState(types.StateTerminated, types.StateDetails{})
	})

	s.Client.On("exited", func(msg dap.Message) {
		ev, ok := msg.(*dap.ExitedEvent)
		if !ok {
			s.setState(types.StateTerminated, types.StateDetails{})
			return
		}
		exitCode := ev.Body.ExitCode
		s.setState(types.StateTerminated, types.StateDetails{ExitCode: &exitCode})
	})

	// The transport closing out from under us (adapter crash, killed
	// process, broken pipe) is as final as an explicit terminated event:
	// nothing further will ever arrive for this session.
	s.Client.On("__disconnected__", func(msg dap.Message) {
		s.setState(types.StateTerminated, types.StateDetails{Error: "debug adapter disconnected"})
	})
}

// SetBreakpoint records a breakpoint request for source. It does not talk to
// the adapter: Launch sends the recorded breakpoints during its handshake,
// and ApplyBreakpointsNow sends them afterwards.
func (s *Session) SetBreakpoint(source string, line int, condition, hitCondition, logMessage string) {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()

	if s.breakpoints == nil {
		s.breakpoints = make(map[string][]pendingBreakpoint)
	}
	s.breakpoints[source] = append(s.breakpoints[source], pendingBreakpoint{
		line:         line,
		condition:    condition,
		hitCondition: hitCondition,
		logMessage:   logMessage,
	})
}

// applyBreakpoints replays every buffered breakpoint set via setBreakpoints,
// one request per source file (DAP semantics: each setBreakpoints call
// replaces the full set for that source).
func (s *Session) applyBreakpoints() ([]dap.Breakpoint, error) {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()

	var verified []dap.Breakpoint
	for path, pending := range s.breakpoints {
		sourceBPs := make([]dap.SourceBreakpoint, len(pending))
		for i, p := range pending {
			sourceBPs[i] = dap.SourceBreakpoint{
				Line:         p.line,
				Condition:    p.condition,
				HitCondition: p.hitCondition,
				LogMessage:   p.logMessage,
			}
		}

		result, err := s.Client.SetBreakpoints(dap.Source{Path: path}, sourceBPs)
		if err != nil {
			return nil, fmt.Errorf("failed to set breakpoints for %s: %w", path, err)
		}
		verified = append(verified, result...)
	}

	s.configDone = true
	return verified, nil
}

// ApplyBreakpointsNow sends the recorded breakpoints to the adapter
// immediately, one setBreakpoints request per source. Every source with
// recorded breakpoints is re-sent, not only path. Used when a breakpoint is
// set after the launch handshake has already completed.
func (s *Session) ApplyBreakpointsNow(path string) ([]dap.Breakpoint, error) {
	return s.applyBreakpoints()
}

// ListBreakpoints returns the breakpoints currently tracked for this
// session, grouped by source path.
func (s *Session) ListBreakpoints() map[string][]types.BreakpointRequest {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()

	result := make(map[string][]types.BreakpointRequest, len(s.breakpoints))
	for path, pending := range s.breakpoints {
		reqs := make([]types.BreakpointRequest, len(pending))
		for i, p := range pending {
			reqs[i] = types.BreakpointRequest{
				Line:         p.line,
				Condition:    p.condition,
				HitCondition: p.hitCondition,
				LogMessage:   p.logMessage,
			}
		}
		result[path] = reqs
	}
	return result
}

// LaunchOptions configures the 8-step launch handshake.
type LaunchOptions struct {
	ClientID      string
	ClientName    string
	LaunchArgs    map[string]interface{}
	LaunchTimeout time.Duration
	RequestTimeout time.Duration
}

// Launch drives the full DAP launch handshake:
//  1. initialize (await)
//  2. register the state-machine event listeners (the initialized event
//     itself is tracked by the client, which records it whenever it arrives)
//  3. send launch without awaiting its response
//  4. await the initialized event
//  5. Ruby only: pause thread 1 and wait briefly for a stop, to work around
//     rdbg not accepting breakpoints until the interpreter has stopped once
//  6. apply any breakpoints buffered before this call
//  7. send configurationDone and await it
//  8. await the deferred launch response
//
// Apart from session teardown, s.state is written only here and by the event
// handlers installed in step 2. Once step 3 has run, Launch itself writes
// state only to record StateFailed when a later step errors.
func (s *Session) Launch(ctx context.Context, opts LaunchOptions) error {
	s.setState(types.StateInitializing, types.StateDetails{})

	if _, err := s.Client.Initialize(opts.ClientID, opts.ClientName); err != nil {
		s.setState(types.StateFailed, types.StateDetails{Error: err.Error()})
		return fmt.Errorf("initialize failed: %w", err)
	}
	s.setState(types.StateInitialized, types.StateDetails{})

	s.registerStateHandlers()

	s.setState(types.StateLaunching, types.StateDetails{})

	launchRespCh, err := s.Client.LaunchAsync(opts.LaunchArgs)
	if err != nil {
		s.setState(types.StateFailed, types.StateDetails{Error: err.Error()})
		return fmt.Errorf("failed to send launch request: %w", err)
	}

	if err := s.Client.WaitInitialized(opts.LaunchTimeout); err != nil {
		s.setState(types.StateFailed, types.StateDetails{Error: err.Error()})
		return fmt.Errorf("timed out waiting for initialized event: %w", err)
	}

	if s.Language == types.LanguageRuby {
		if err := s.Client.Pause(1); err != nil {
			log.Printf("session %s: ruby pause workaround failed, continuing: %v", s.ID, err)
		} else if _, err := s.Client.WaitForStopped(2 * time.Second); err != nil {
			log.Printf("session %s: ruby pause workaround did not observe a stop, continuing: %v", s.ID, err)
		}
	}

	if _, err := s.applyBreakpoints(); err != nil {
		s.setState(types.StateFailed, types.StateDetails{Error: err.Error()})
		return err
	}

	if err := s.Client.ConfigurationDone(); err != nil {
		s.setState(types.StateFailed, types.StateDetails{Error: err.Error()})
		return fmt.Errorf("configurationDone failed: %w", err)
	}

	if _, err := s.Client.WaitForLaunchResponse(launchRespCh, opts.LaunchTimeout); err != nil {
		s.setState(types.StateFailed, types.StateDetails{Error: err.Error()})
		return fmt.Errorf("launch response failed: %w", err)
	}

	// Deliberately no state write here: the session stays in Launching
	// until a stopped/continued/terminated/exited event moves it, per the
	// critical rule in the state machine. Writing Running synchronously
	// here raced the stopped event for stopOnEntry=true.
	return nil
}

// WaitForStop blocks until the session enters StateStopped, up to timeout.
// If the session is already stopped it returns immediately: a stopped event
// that arrived between a debugger_continue call and this one must not be
// lost just because no listener was installed yet to catch it.
func (s *Session) WaitForStop(timeout time.Duration) (types.StateDetails, error) {
	if state, details := s.State(); state == types.StateStopped {
		return details, nil
	}

	info, err := s.Client.WaitForStopped(timeout)
	if err != nil {
		return types.StateDetails{}, err
	}
	return types.StateDetails{ThreadID: info.ThreadID, Reason: info.Reason}, nil
}

// SessionManager manages multiple debug sessions.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxSessions    int
	sessionTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSessionManager creates a new session manager.
func NewSessionManager(maxSessions int, sessionTimeout time.Duration) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	sm := &SessionManager{
		sessions:       make(map[string]*Session),
		maxSessions:    maxSessions,
		sessionTimeout: sessionTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}

	go sm.cleanupLoop()

	return sm
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupExpiredSessions()
		}
	}
}

func (sm *SessionManager) cleanupExpiredSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.CreatedAt) > sm.sessionTimeout {
			sm.terminateSessionLocked(id)
		}
	}
}

// CreateSession creates a new debug session in StateNotStarted.
func (sm *SessionManager) CreateSession(language types.Language, program string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", sm.maxSessions)
	}

	session := &Session{
		ID:        uuid.New().String(),
		Language:  language,
		Program:   program,
		CreatedAt: time.Now(),
		state:     types.StateNotStarted,
	}

	sm.sessions[session.ID] = session
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	return session, nil
}

// ListSessions returns all active sessions.
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// TerminateSession terminates a session and cleans up resources.
func (sm *SessionManager) TerminateSession(id string, terminateDebuggee bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[id]; !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	sm.terminateSessionWith(id, terminateDebuggee)
	return nil
}

// terminateSessionLocked terminates a session during cleanup sweeps, always
// terminating the debuggee. Must be called with sm.mu held.
func (sm *SessionManager) terminateSessionLocked(id string) {
	sm.terminateSessionWith(id, true)
}

func (sm *SessionManager) terminateSessionWith(id string, terminateDebuggee bool) {
	session, ok := sm.sessions[id]
	if !ok {
		return
	}

	if session.Client != nil {
		if err := session.Client.Disconnect(terminateDebuggee); err != nil {
			log.Printf("warning: failed to disconnect session %s: %v (continuing cleanup)", id, err)
		}
		if err := session.Client.Close(); err != nil {
			log.Printf("warning: failed to close client for session %s: %v (continuing cleanup)", id, err)
		}
	}

	if err := killProcessGroup(session.PID, session.Process); err != nil {
		log.Printf("warning: failed to kill process group for session %s (PID %d): %v", id, session.PID, err)
	}

	session.setState(types.StateTerminated, types.StateDetails{})
	delete(sm.sessions, id)
}

// SetSessionClient sets the DAP client for a session.
func (sm *SessionManager) SetSessionClient(id string, client *Client) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.Client = client
	return nil
}

// SetSessionProcess sets the spawned process for a session.
func (sm *SessionManager) SetSessionProcess(id string, cmd *exec.Cmd, pid int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.Process = cmd
	session.PID = pid
	return nil
}

// Close shuts down the session manager, tearing down every active session
// in parallel. A single slow adapter disconnect no longer blocks the
// others.
func (sm *SessionManager) Close() {
	sm.cancel()

	sm.mu.Lock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	sm.mu.Unlock()

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			// Take the session out of the shared map under the lock, then
			// tear it down through a private single-entry manager so the
			// slow part (adapter disconnect, process kill) runs without sm.mu.
			sm.mu.Lock()
			session, ok := sm.sessions[id]
			delete(sm.sessions, id)
			sm.mu.Unlock()
			if !ok {
				return nil
			}
			single := &SessionManager{sessions: map[string]*Session{id: session}}
			single.terminateSessionWith(id, true)
			return nil
		})
	}
	_ = g.Wait()
}
