package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/go-dap"

	debugerrors "github.com/debugbridge/dapmcp/internal/errors"
)

// DefaultRequestTimeout bounds routine DAP requests (threads, stackTrace,
// evaluate, continue, ...).
const DefaultRequestTimeout = 2 * time.Second

// DefaultLaunchTimeout bounds the wait for the initialized event during the
// launch handshake.
const DefaultLaunchTimeout = 5 * time.Second

// StoppedInfo describes why the debuggee stopped.
type StoppedInfo struct {
	Reason      string
	ThreadID    int
	Description string
	AllStopped  bool
}

// pendingResult is what a pending request's channel eventually receives:
// either its response, or the error that kept it from ever arriving (most
// often the transport disconnecting out from under it).
type pendingResult struct {
	msg dap.Message
	err error
}

// listenerEntry is a registered event callback along with the id On
// returned for it, so Off can find and remove it again.
type listenerEntry struct {
	id int
	fn func(dap.Message)
}

// Client provides a request/response and event-subscription API over a DAP
// transport. Multiple independent listeners can subscribe to the same event
// name; this lets the session state machine, the Ruby pause workaround, and
// ad hoc callers all observe "stopped"/"terminated"/"exited" without
// fighting over a single callback slot.
type Client struct {
	transport *Transport

	sessionID string

	pendingRequests map[int]chan pendingResult
	mu              sync.Mutex

	listeners      map[string][]listenerEntry
	nextListenerID int
	listenersMu    sync.Mutex

	capabilities dap.Capabilities

	initialized     chan struct{}
	initializedOnce sync.Once

	requestTimeout time.Duration
	launchTimeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a new DAP client with the given transport and starts its
// read loop.
func NewClient(transport *Transport) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		transport:       transport,
		pendingRequests: make(map[int]chan pendingResult),
		listeners:       make(map[string][]listenerEntry),
		initialized:     make(chan struct{}),
		requestTimeout:  DefaultRequestTimeout,
		launchTimeout:   DefaultLaunchTimeout,
		ctx:             ctx,
		cancel:          cancel,
	}

	c.wg.Add(1)
	go c.readLoop()

	return c
}

// SetTimeouts overrides the client's default request/launch timeouts.
func (c *Client) SetTimeouts(request, launch time.Duration) {
	c.requestTimeout = request
	c.launchTimeout = launch
}

// SetSessionID records the owning session's ID, used only to label the
// AdapterDisconnected error raised if the transport drops.
func (c *Client) SetSessionID(id string) {
	c.sessionID = id
}

// On registers fn to be called whenever an event named eventName (the DAP
// "event" field, e.g. "stopped", "terminated", "output") arrives. Multiple
// listeners for the same name are all invoked, each in its own goroutine, so
// their relative order is not defined. The returned id can be passed to Off
// to remove fn again.
func (c *Client) On(eventName string, fn func(dap.Message)) int {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	c.listeners[eventName] = append(c.listeners[eventName], listenerEntry{id: id, fn: fn})
	return id
}

// Off removes the listener id previously returned by On for eventName. A
// no-op if it has already fired and been removed, or never existed.
func (c *Client) Off(eventName string, id int) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	entries := c.listeners[eventName]
	for i, e := range entries {
		if e.id == id {
			c.listeners[eventName] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// WaitForEvent blocks until an event named eventName arrives or timeout
// elapses. It installs a temporary listener and removes it again before
// returning, so a blocking wait never leaks a permanent subscriber.
func (c *Client) WaitForEvent(eventName string, timeout time.Duration) (dap.Message, error) {
	ch := make(chan dap.Message, 1)
	id := c.On(eventName, func(msg dap.Message) {
		select {
		case ch <- msg:
		default:
		}
	})
	defer c.Off(eventName, id)

	select {
	case msg := <-ch:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %s event", eventName)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// dispatchEvent invokes every listener for name as a short spawned task so a
// slow or blocking callback can never stall the reader goroutine that feeds
// it.
func (c *Client) dispatchEvent(name string, msg dap.Message) {
	c.listenersMu.Lock()
	entries := append([]listenerEntry{}, c.listeners[name]...)
	c.listenersMu.Unlock()
	for _, e := range entries {
		go e.fn(msg)
	}
}

// failPendingRequests fails every outstanding sendRequest call with err,
// used when the transport closes so callers don't hang until their
// individual per-request timeouts expire.
func (c *Client) failPendingRequests(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, ch := range c.pendingRequests {
		ch <- pendingResult{err: err}
		delete(c.pendingRequests, seq)
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	consecutiveErrors := 0
	const maxConsecutiveErrors = 5

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		msg, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
				consecutiveErrors++
				log.Printf("dap: transport read error (attempt %d/%d): %v", consecutiveErrors, maxConsecutiveErrors, err)
				if consecutiveErrors >= maxConsecutiveErrors {
					log.Printf("dap: too many consecutive transport errors, stopping read loop")
					c.failPendingRequests(debugerrors.AdapterDisconnected(c.sessionID, err))
					c.dispatchEvent("__disconnected__", nil)
					return
				}
				continue
			}
		}

		consecutiveErrors = 0
		c.handleMessage(msg)
	}
}

// eventName maps a concrete DAP event type to its wire event name, the key
// listeners subscribe to via On/WaitForEvent.
func eventName(msg dap.Message) (string, bool) {
	switch msg.(type) {
	case *dap.InitializedEvent:
		return "initialized", true
	case *dap.StoppedEvent:
		return "stopped", true
	case *dap.ContinuedEvent:
		return "continued", true
	case *dap.ExitedEvent:
		return "exited", true
	case *dap.TerminatedEvent:
		return "terminated", true
	case *dap.ThreadEvent:
		return "thread", true
	case *dap.OutputEvent:
		return "output", true
	case *dap.BreakpointEvent:
		return "breakpoint", true
	case *dap.ModuleEvent:
		return "module", true
	case *dap.ProcessEvent:
		return "process", true
	case *dap.CapabilitiesEvent:
		return "capabilities", true
	default:
		return "", false
	}
}

// handleMessage routes a response to its waiting caller by RequestSeq, or an
// event to its registered listeners.
func (c *Client) handleMessage(msg dap.Message) {
	if name, ok := eventName(msg); ok {
		if name == "initialized" {
			c.initializedOnce.Do(func() { close(c.initialized) })
		}
		c.dispatchEvent(name, msg)
		return
	}

	if resp, ok := msg.(dap.ResponseMessage); ok {
		seq := resp.GetResponse().RequestSeq
		c.mu.Lock()
		if ch, ok := c.pendingRequests[seq]; ok {
			ch <- pendingResult{msg: msg}
			delete(c.pendingRequests, seq)
		}
		c.mu.Unlock()
		return
	}
}

func assignSeq(req dap.RequestMessage, seq int) {
	switch r := req.(type) {
	case *dap.InitializeRequest:
		r.Seq = seq
	case *dap.LaunchRequest:
		r.Seq = seq
	case *dap.AttachRequest:
		r.Seq = seq
	case *dap.DisconnectRequest:
		r.Seq = seq
	case *dap.ConfigurationDoneRequest:
		r.Seq = seq
	case *dap.ThreadsRequest:
		r.Seq = seq
	case *dap.StackTraceRequest:
		r.Seq = seq
	case *dap.ScopesRequest:
		r.Seq = seq
	case *dap.VariablesRequest:
		r.Seq = seq
	case *dap.EvaluateRequest:
		r.Seq = seq
	case *dap.SetBreakpointsRequest:
		r.Seq = seq
	case *dap.SetFunctionBreakpointsRequest:
		r.Seq = seq
	case *dap.SetExceptionBreakpointsRequest:
		r.Seq = seq
	case *dap.ContinueRequest:
		r.Seq = seq
	case *dap.NextRequest:
		r.Seq = seq
	case *dap.StepInRequest:
		r.Seq = seq
	case *dap.StepOutRequest:
		r.Seq = seq
	case *dap.PauseRequest:
		r.Seq = seq
	case *dap.SetVariableRequest:
		r.Seq = seq
	case *dap.SourceRequest:
		r.Seq = seq
	case *dap.ModulesRequest:
		r.Seq = seq
	}
}

// sendRequest sends req and blocks for its response, up to timeout.
func (c *Client) sendRequest(req dap.RequestMessage, timeout time.Duration) (dap.Message, error) {
	respCh, err := c.sendRequestNoWait(req)
	if err != nil {
		return nil, err
	}

	select {
	case result := <-respCh:
		return result.msg, result.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("request timeout")
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// sendRequestNoWait sends req and returns immediately with a channel that
// will receive the eventual response. Used for launch/attach, whose response
// may not arrive until after configurationDone has been sent.
func (c *Client) sendRequestNoWait(req dap.RequestMessage) (chan pendingResult, error) {
	seq := c.transport.NextSeq()
	assignSeq(req, seq)

	respCh := make(chan pendingResult, 1)
	c.mu.Lock()
	c.pendingRequests[seq] = respCh
	c.mu.Unlock()

	if err := c.transport.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pendingRequests, seq)
		c.mu.Unlock()
		return nil, err
	}

	return respCh, nil
}

func newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Type: "request"},
		Command:         command,
	}
}

// Initialize sends the initialize request.
func (c *Client) Initialize(clientID, clientName string) (*dap.InitializeResponse, error) {
	req := &dap.InitializeRequest{
		Request: newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:                     clientID,
			ClientName:                   clientName,
			AdapterID:                    "debugbridge",
			Locale:                       "en-US",
			LinesStartAt1:                true,
			ColumnsStartAt1:              true,
			PathFormat:                   "path",
			SupportsVariableType:         true,
			SupportsVariablePaging:       true,
			SupportsRunInTerminalRequest: false,
		},
	}

	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}

	initResp, ok := resp.(*dap.InitializeResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !initResp.Success {
		return nil, fmt.Errorf("initialize failed: %s", initResp.Message)
	}

	c.capabilities = initResp.Body
	return initResp, nil
}

// WaitInitialized waits for the initialized event.
func (c *Client) WaitInitialized(timeout time.Duration) error {
	select {
	case <-c.initialized:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for initialized event")
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// LaunchAsync sends a launch request without waiting for the response. The
// response may not arrive until after configurationDone has been sent, so
// callers must pair this with WaitForLaunchResponse later in the sequence.
func (c *Client) LaunchAsync(args map[string]interface{}) (chan pendingResult, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal launch args: %w", err)
	}
	req := &dap.LaunchRequest{
		Request:   newRequest("launch"),
		Arguments: argsJSON,
	}
	return c.sendRequestNoWait(req)
}

// WaitForLaunchResponse waits on the channel returned by LaunchAsync.
func (c *Client) WaitForLaunchResponse(respCh chan pendingResult, timeout time.Duration) (*dap.LaunchResponse, error) {
	select {
	case result := <-respCh:
		if result.err != nil {
			return nil, result.err
		}
		launchResp, ok := result.msg.(*dap.LaunchResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected response type: %T", result.msg)
		}
		if !launchResp.Success {
			return nil, fmt.Errorf("launch failed: %s", launchResp.Message)
		}
		return launchResp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("launch response timeout")
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// AttachAsync mirrors LaunchAsync for the attach request.
func (c *Client) AttachAsync(args map[string]interface{}) (chan pendingResult, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attach args: %w", err)
	}
	req := &dap.AttachRequest{
		Request:   newRequest("attach"),
		Arguments: argsJSON,
	}
	return c.sendRequestNoWait(req)
}

// WaitForAttachResponse mirrors WaitForLaunchResponse for attach.
func (c *Client) WaitForAttachResponse(respCh chan pendingResult, timeout time.Duration) (*dap.AttachResponse, error) {
	select {
	case result := <-respCh:
		if result.err != nil {
			return nil, result.err
		}
		attachResp, ok := result.msg.(*dap.AttachResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected response type: %T", result.msg)
		}
		if !attachResp.Success {
			return nil, fmt.Errorf("attach failed: %s", attachResp.Message)
		}
		return attachResp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("attach response timeout")
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// ConfigurationDone signals that configuration (breakpoints etc.) is complete.
func (c *Client) ConfigurationDone() error {
	req := &dap.ConfigurationDoneRequest{Request: newRequest("configurationDone")}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	configResp, ok := resp.(*dap.ConfigurationDoneResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !configResp.Success {
		return fmt.Errorf("configurationDone failed: %s", configResp.Message)
	}
	return nil
}

// Disconnect ends the debug session.
func (c *Client) Disconnect(terminateDebuggee bool) error {
	req := &dap.DisconnectRequest{
		Request:   newRequest("disconnect"),
		Arguments: &dap.DisconnectArguments{TerminateDebuggee: terminateDebuggee},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	disconnectResp, ok := resp.(*dap.DisconnectResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !disconnectResp.Success {
		return fmt.Errorf("disconnect failed: %s", disconnectResp.Message)
	}
	return nil
}

// Threads returns all threads.
func (c *Client) Threads() ([]dap.Thread, error) {
	req := &dap.ThreadsRequest{Request: newRequest("threads")}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	threadsResp, ok := resp.(*dap.ThreadsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !threadsResp.Success {
		return nil, fmt.Errorf("threads request failed: %s", threadsResp.Message)
	}
	return threadsResp.Body.Threads, nil
}

// StackTrace returns the stack trace for a thread.
func (c *Client) StackTrace(threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	req := &dap.StackTraceRequest{
		Request: newRequest("stackTrace"),
		Arguments: dap.StackTraceArguments{
			ThreadId:   threadID,
			StartFrame: startFrame,
			Levels:     levels,
		},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, 0, err
	}
	stackResp, ok := resp.(*dap.StackTraceResponse)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !stackResp.Success {
		return nil, 0, fmt.Errorf("stackTrace request failed: %s", stackResp.Message)
	}
	return stackResp.Body.StackFrames, stackResp.Body.TotalFrames, nil
}

// Scopes returns the scopes visible in a stack frame.
func (c *Client) Scopes(frameID int) ([]dap.Scope, error) {
	req := &dap.ScopesRequest{
		Request:   newRequest("scopes"),
		Arguments: dap.ScopesArguments{FrameId: frameID},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	scopesResp, ok := resp.(*dap.ScopesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !scopesResp.Success {
		return nil, fmt.Errorf("scopes request failed: %s", scopesResp.Message)
	}
	return scopesResp.Body.Scopes, nil
}

// Variables returns the variables under a variablesReference.
func (c *Client) Variables(variablesRef int, filter string, start, count int) ([]dap.Variable, error) {
	args := dap.VariablesArguments{VariablesReference: variablesRef}
	if filter != "" {
		args.Filter = filter
	}
	if start > 0 {
		args.Start = start
	}
	if count > 0 {
		args.Count = count
	}

	req := &dap.VariablesRequest{Request: newRequest("variables"), Arguments: args}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	varsResp, ok := resp.(*dap.VariablesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !varsResp.Success {
		return nil, fmt.Errorf("variables request failed: %s", varsResp.Message)
	}
	return varsResp.Body.Variables, nil
}

// Evaluate evaluates an expression in the given frame.
func (c *Client) Evaluate(expression string, frameID int, evalContext string) (*dap.EvaluateResponseBody, error) {
	req := &dap.EvaluateRequest{
		Request: newRequest("evaluate"),
		Arguments: dap.EvaluateArguments{
			Expression: expression,
			FrameId:    frameID,
			Context:    evalContext,
		},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	evalResp, ok := resp.(*dap.EvaluateResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !evalResp.Success {
		return nil, fmt.Errorf("evaluate failed: %s", evalResp.Message)
	}
	return &evalResp.Body, nil
}

// SetBreakpoints sets the full set of source breakpoints for a file,
// replacing any previous set (per DAP semantics).
func (c *Client) SetBreakpoints(source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	req := &dap.SetBreakpointsRequest{
		Request: newRequest("setBreakpoints"),
		Arguments: dap.SetBreakpointsArguments{
			Source:      source,
			Breakpoints: breakpoints,
		},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	bpResp, ok := resp.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !bpResp.Success {
		return nil, fmt.Errorf("setBreakpoints failed: %s", bpResp.Message)
	}
	return bpResp.Body.Breakpoints, nil
}

// SetFunctionBreakpoints sets function breakpoints.
func (c *Client) SetFunctionBreakpoints(breakpoints []dap.FunctionBreakpoint) ([]dap.Breakpoint, error) {
	req := &dap.SetFunctionBreakpointsRequest{
		Request:   newRequest("setFunctionBreakpoints"),
		Arguments: dap.SetFunctionBreakpointsArguments{Breakpoints: breakpoints},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	bpResp, ok := resp.(*dap.SetFunctionBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !bpResp.Success {
		return nil, fmt.Errorf("setFunctionBreakpoints failed: %s", bpResp.Message)
	}
	return bpResp.Body.Breakpoints, nil
}

// SetExceptionBreakpoints enables the named exception filters.
func (c *Client) SetExceptionBreakpoints(filters []string) error {
	req := &dap.SetExceptionBreakpointsRequest{
		Request:   newRequest("setExceptionBreakpoints"),
		Arguments: dap.SetExceptionBreakpointsArguments{Filters: filters},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	exResp, ok := resp.(*dap.SetExceptionBreakpointsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !exResp.Success {
		return fmt.Errorf("setExceptionBreakpoints failed: %s", exResp.Message)
	}
	return nil
}

// Continue resumes execution on a thread.
func (c *Client) Continue(threadID int) (bool, error) {
	req := &dap.ContinueRequest{
		Request:   newRequest("continue"),
		Arguments: dap.ContinueArguments{ThreadId: threadID},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return false, err
	}
	contResp, ok := resp.(*dap.ContinueResponse)
	if !ok {
		return false, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !contResp.Success {
		return false, fmt.Errorf("continue failed: %s", contResp.Message)
	}
	return contResp.Body.AllThreadsContinued, nil
}

// Next steps over the current line.
func (c *Client) Next(threadID int) error {
	req := &dap.NextRequest{Request: newRequest("next"), Arguments: dap.NextArguments{ThreadId: threadID}}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	nextResp, ok := resp.(*dap.NextResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !nextResp.Success {
		return fmt.Errorf("next failed: %s", nextResp.Message)
	}
	return nil
}

// StepIn steps into the current call.
func (c *Client) StepIn(threadID int) error {
	req := &dap.StepInRequest{Request: newRequest("stepIn"), Arguments: dap.StepInArguments{ThreadId: threadID}}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	stepResp, ok := resp.(*dap.StepInResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !stepResp.Success {
		return fmt.Errorf("stepIn failed: %s", stepResp.Message)
	}
	return nil
}

// StepOut steps out of the current call.
func (c *Client) StepOut(threadID int) error {
	req := &dap.StepOutRequest{Request: newRequest("stepOut"), Arguments: dap.StepOutArguments{ThreadId: threadID}}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	stepResp, ok := resp.(*dap.StepOutResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !stepResp.Success {
		return fmt.Errorf("stepOut failed: %s", stepResp.Message)
	}
	return nil
}

// Pause requests that the debuggee stop.
func (c *Client) Pause(threadID int) error {
	req := &dap.PauseRequest{Request: newRequest("pause"), Arguments: dap.PauseArguments{ThreadId: threadID}}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return err
	}
	pauseResp, ok := resp.(*dap.PauseResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !pauseResp.Success {
		return fmt.Errorf("pause failed: %s", pauseResp.Message)
	}
	return nil
}

// SetVariable changes a variable's value.
func (c *Client) SetVariable(variablesRef int, name, value string) (*dap.SetVariableResponseBody, error) {
	req := &dap.SetVariableRequest{
		Request: newRequest("setVariable"),
		Arguments: dap.SetVariableArguments{
			VariablesReference: variablesRef,
			Name:               name,
			Value:              value,
		},
	}
	resp, err := c.sendRequest(req, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	setResp, ok := resp.(*dap.SetVariableResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	if !setResp.Success {
		return nil, fmt.Errorf("setVariable failed: %s", setResp.Message)
	}
	return &setResp.Body, nil
}

// Capabilities returns the capabilities negotiated in Initialize.
func (c *Client) Capabilities() dap.Capabilities {
	return c.capabilities
}

// WaitForStopped blocks until the next stopped event, up to timeout. Unlike
// WaitForEvent it decodes the event body into a StoppedInfo.
func (c *Client) WaitForStopped(timeout time.Duration) (*StoppedInfo, error) {
	msg, err := c.WaitForEvent("stopped", timeout)
	if err != nil {
		return nil, err
	}
	ev, ok := msg.(*dap.StoppedEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected event type: %T", msg)
	}
	return &StoppedInfo{
		Reason:      ev.Body.Reason,
		ThreadID:    ev.Body.ThreadId,
		Description: ev.Body.Description,
		AllStopped:  ev.Body.AllThreadsStopped,
	}, nil
}

// ContinueAndWait continues a thread and waits for the resulting stop.
func (c *Client) ContinueAndWait(threadID int, timeout time.Duration) (*StoppedInfo, error) {
	ch := make(chan dap.Message, 1)
	id := c.On("stopped", func(msg dap.Message) {
		select {
		case ch <- msg:
		default:
		}
	})
	defer c.Off("stopped", id)

	if _, err := c.Continue(threadID); err != nil {
		return nil, err
	}

	select {
	case msg := <-ch:
		ev := msg.(*dap.StoppedEvent)
		return &StoppedInfo{
			Reason:      ev.Body.Reason,
			ThreadID:    ev.Body.ThreadId,
			Description: ev.Body.Description,
			AllStopped:  ev.Body.AllThreadsStopped,
		}, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for stopped event after continue")
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// Close shuts down the client and the underlying transport. The transport is
// closed before waiting for the read loop, which may be blocked in Receive.
func (c *Client) Close() error {
	c.cancel()
	err := c.transport.Close()
	c.wg.Wait()
	return err
}
