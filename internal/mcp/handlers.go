package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/debugbridge/dapmcp/internal/adapters"
	"github.com/debugbridge/dapmcp/internal/dap"
	debugerrors "github.com/debugbridge/dapmcp/internal/errors"
	"github.com/debugbridge/dapmcp/pkg/types"
)

var supportedLanguages = []string{"python", "ruby", "nodejs", "go", "rust"}

func errorResult(err error) (*mcp.CallToolResult, error) {
	de := debugerrors.FromError(err)
	payload, marshalErr := json.Marshal(de)
	if marshalErr != nil {
		return mcp.NewToolResultError(de.Error()), nil
	}
	return mcp.NewToolResultError(string(payload)), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return errorResult(debugerrors.Internal("marshaling tool result", err))
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) getSession(sessionID string) (*dap.Session, error) {
	session, err := s.sessionManager.GetSession(sessionID)
	if err != nil {
		return nil, debugerrors.SessionNotFound(sessionID)
	}
	return session, nil
}

func optFloat(request mcp.CallToolRequest, name string, fallback int) int {
	if v, err := request.RequireFloat(name); err == nil {
		return int(v)
	}
	return fallback
}

// requireStopped returns an InvalidState error unless session is currently
// paused. Stack inspection, evaluation, and stepping only make sense while
// the debuggee is stopped.
func requireStopped(session *dap.Session) error {
	state, _ := session.State()
	if state != types.StateStopped {
		return debugerrors.InvalidState(types.StateStopped.String(), state.String(), "wait_for_stop")
	}
	return nil
}

// handleDebuggerStart spawns the adapter for the requested language, runs
// the launch handshake, and returns the new session's info. All state
// mutation happens inside Session.Launch; this handler only reads it back
// afterward via GetInfo.
func (s *Server) handleDebuggerStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	language, err := request.RequireString("language")
	if err != nil {
		return errorResult(debugerrors.MissingParam("language", "Specify one of: python, ruby, nodejs, go, rust."))
	}
	program, err := request.RequireString("program")
	if err != nil {
		return errorResult(debugerrors.MissingParam("program", "Path to the program to debug."))
	}

	lang := types.Language(language)
	adapter, err := s.adapterReg.Get(lang)
	if err != nil {
		return errorResult(debugerrors.AdapterNotFound(language, supportedLanguages))
	}

	if !s.config.CanSpawn() {
		return errorResult(debugerrors.UnsupportedFeature("debugger_start", language).
			WithDetails("reason", "allowSpawn is disabled in the server configuration"))
	}

	launchArgsInput := map[string]interface{}{}
	if cwd, err := request.RequireString("cwd"); err == nil && cwd != "" {
		launchArgsInput["cwd"] = cwd
	}
	if stopOnEntry := request.GetBool("stopOnEntry", false); stopOnEntry {
		launchArgsInput["stopOnEntry"] = true
	}
	if pythonPath, err := request.RequireString("pythonPath"); err == nil && pythonPath != "" {
		launchArgsInput["pythonPath"] = pythonPath
	}

	programPath := program

	if rustAdapter, ok := adapter.(*adapters.RustAdapter); ok {
		cwd, _ := launchArgsInput["cwd"].(string)
		compiled, compileErr := rustAdapter.CompileTarget(ctx, programPath, cwd)
		if compileErr != nil {
			if ce, ok2 := compileErr.(*adapters.CompileError); ok2 {
				return errorResult(debugerrors.Compilation(ce.Program, ce.Stderr))
			}
			return errorResult(debugerrors.Compilation(programPath, compileErr.Error()))
		}
		programPath = compiled
	}

	session, err := s.sessionManager.CreateSession(lang, program)
	if err != nil {
		return errorResult(debugerrors.Wrap(debugerrors.CodeInternal, err.Error(),
			"Disconnect unused sessions with debugger_disconnect before starting more.", err))
	}

	client, cmd, err := adapters.SpawnAndConnect(ctx, adapter, programPath, launchArgsInput)
	if err != nil {
		_ = s.sessionManager.TerminateSession(session.ID, false)
		return errorResult(debugerrors.Wrap(debugerrors.CodeAdapterDisconnected, err.Error(),
			"Check that the debug adapter for this language is installed and on PATH.", err))
	}

	pid := 0
	if cmd != nil && cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	client.SetSessionID(session.ID)
	_ = s.sessionManager.SetSessionClient(session.ID, client)
	_ = s.sessionManager.SetSessionProcess(session.ID, cmd, pid)
	session.Client = client

	launchArgs := adapter.BuildLaunchArgs(programPath, launchArgsInput)

	launchOpts := dap.LaunchOptions{
		ClientID:       "debugbridge",
		ClientName:     "Debug Bridge",
		LaunchArgs:     launchArgs,
		LaunchTimeout:  s.config.LaunchTimeout,
		RequestTimeout: s.config.RequestTimeout,
	}
	if launchOpts.LaunchTimeout == 0 {
		launchOpts.LaunchTimeout = dap.DefaultLaunchTimeout
	}
	if launchOpts.RequestTimeout == 0 {
		launchOpts.RequestTimeout = dap.DefaultRequestTimeout
	}
	client.SetTimeouts(launchOpts.RequestTimeout, launchOpts.LaunchTimeout)

	if err := session.Launch(ctx, launchOpts); err != nil {
		return errorResult(debugerrors.DapProtocol("launch", err))
	}

	return jsonResult(session.GetInfo())
}

func (s *Server) handleDebuggerDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to disconnect from."))
	}
	terminateDebuggee := request.GetBool("terminateDebuggee", true)

	if err := s.sessionManager.TerminateSession(sessionID, terminateDebuggee); err != nil {
		return errorResult(debugerrors.SessionNotFound(sessionID))
	}

	return jsonResult(map[string]interface{}{"sessionId": sessionID, "disconnected": true})
}

func (s *Server) handleDebuggerListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.sessionManager.ListSessions()
	infos := make([]types.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.GetInfo())
	}
	return jsonResult(map[string]interface{}{"sessions": infos})
}

func (s *Server) handleDebuggerSessionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(session.GetInfo())
}

func (s *Server) handleDebuggerStackTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("threadId", "The thread ID, from debugger_threads."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}
	if err := requireStopped(session); err != nil {
		return errorResult(err)
	}

	startFrame := optFloat(request, "startFrame", 0)
	levels := optFloat(request, "levels", 0)

	frames, totalFrames, err := session.Client.StackTrace(int(threadID), startFrame, levels)
	if err != nil {
		return errorResult(debugerrors.DapProtocol("stackTrace", err))
	}

	return jsonResult(map[string]interface{}{
		"frames":      frames,
		"totalFrames": totalFrames,
	})
}

func (s *Server) handleDebuggerThreads(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	threads, err := session.Client.Threads()
	if err != nil {
		return errorResult(debugerrors.DapProtocol("threads", err))
	}
	return jsonResult(threads)
}

func (s *Server) handleDebuggerScopes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	frameID, err := request.RequireFloat("frameId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("frameId", "The stack frame ID, from debugger_stack_trace."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	scopes, err := session.Client.Scopes(int(frameID))
	if err != nil {
		return errorResult(debugerrors.DapProtocol("scopes", err))
	}
	return jsonResult(scopes)
}

func (s *Server) handleDebuggerVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	variablesRef, err := request.RequireFloat("variablesReference")
	if err != nil {
		return errorResult(debugerrors.MissingParam("variablesReference", "From debugger_scopes or a previous debugger_variables call."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	vars, err := session.Client.Variables(int(variablesRef), "", 0, 0)
	if err != nil {
		return errorResult(debugerrors.DapProtocol("variables", err))
	}
	return jsonResult(vars)
}

func (s *Server) handleDebuggerEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	expression, err := request.RequireString("expression")
	if err != nil {
		return errorResult(debugerrors.MissingParam("expression", "The expression to evaluate."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	if !s.config.CanEvaluate() {
		return errorResult(debugerrors.UnsupportedFeature("debugger_evaluate", string(session.Language)).
			WithDetails("reason", "allowExecute is disabled in the server configuration"))
	}
	if err := requireStopped(session); err != nil {
		return errorResult(err)
	}

	frameID := optFloat(request, "frameId", 0)
	evalContext, err := request.RequireString("context")
	if err != nil || evalContext == "" {
		evalContext = "watch"
	}

	result, err := session.Client.Evaluate(expression, frameID, evalContext)
	if err != nil {
		return errorResult(debugerrors.DapProtocol("evaluate", err))
	}
	return jsonResult(result)
}

func (s *Server) handleDebuggerSetBreakpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to set a breakpoint on."))
	}
	path, err := request.RequireString("path")
	if err != nil {
		return errorResult(debugerrors.MissingParam("path", "The source file path."))
	}
	line, err := request.RequireFloat("line")
	if err != nil {
		return errorResult(debugerrors.MissingParam("line", "The line number."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	condition, _ := request.RequireString("condition")
	hitCondition, _ := request.RequireString("hitCondition")
	logMessage, _ := request.RequireString("logMessage")

	session.SetBreakpoint(path, int(line), condition, hitCondition, logMessage)

	state, _ := session.State()
	if state == types.StateRunning || state == types.StateStopped {
		verified, err := session.ApplyBreakpointsNow(path)
		if err != nil {
			return errorResult(debugerrors.DapProtocol("setBreakpoints", err))
		}
		return jsonResult(verified)
	}

	return jsonResult(map[string]interface{}{"buffered": true, "path": path, "line": int(line)})
}

func (s *Server) handleDebuggerListBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to query."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(session.ListBreakpoints())
}

func (s *Server) handleDebuggerSetExceptionBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to configure."))
	}
	filtersRaw, err := request.RequireString("filters")
	if err != nil {
		return errorResult(debugerrors.MissingParam("filters", `JSON array of filter IDs, e.g. ["uncaught"].`))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	var filters []string
	if unmarshalErr := json.Unmarshal([]byte(filtersRaw), &filters); unmarshalErr != nil {
		return errorResult(debugerrors.MissingParam("filters", "filters must be a JSON array of strings."))
	}

	if err := session.Client.SetExceptionBreakpoints(filters); err != nil {
		return errorResult(debugerrors.DapProtocol("setExceptionBreakpoints", err))
	}
	return jsonResult(map[string]interface{}{"filters": filters})
}

func (s *Server) handleDebuggerContinue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to resume."))
	}
	threadID := optFloat(request, "threadId", 0)
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	allThreadsContinued, err := session.Client.Continue(threadID)
	if err != nil {
		return errorResult(debugerrors.DapProtocol("continue", err))
	}
	return jsonResult(map[string]interface{}{"status": "continued", "allThreadsContinued": allThreadsContinued})
}

func (s *Server) handleStep(request mcp.CallToolRequest, step func(*dap.Client, int) error) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to step."))
	}
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("threadId", "The thread to step."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}
	if err := requireStopped(session); err != nil {
		return errorResult(err)
	}

	if err := step(session.Client, int(threadID)); err != nil {
		return errorResult(debugerrors.DapProtocol("step", err))
	}
	return jsonResult(map[string]interface{}{"sessionId": sessionID, "threadId": int(threadID)})
}

func (s *Server) handleDebuggerStepOver(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStep(request, func(c *dap.Client, threadID int) error { return c.Next(threadID) })
}

func (s *Server) handleDebuggerStepInto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStep(request, func(c *dap.Client, threadID int) error { return c.StepIn(threadID) })
}

func (s *Server) handleDebuggerStepOut(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStep(request, func(c *dap.Client, threadID int) error { return c.StepOut(threadID) })
}

func (s *Server) handleDebuggerPause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to pause."))
	}
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("threadId", "The thread to pause."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	if err := session.Client.Pause(int(threadID)); err != nil {
		return errorResult(debugerrors.DapProtocol("pause", err))
	}
	return jsonResult(map[string]interface{}{"sessionId": sessionID, "threadId": int(threadID)})
}

func (s *Server) handleDebuggerWaitForStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return errorResult(debugerrors.MissingParam("sessionId", "The session to wait on."))
	}
	session, err := s.getSession(sessionID)
	if err != nil {
		return errorResult(err)
	}

	timeoutMs := 30000.0
	if ts, err := request.RequireFloat("timeoutMs"); err == nil {
		timeoutMs = ts
	}
	timeout := time.Duration(timeoutMs * float64(time.Millisecond))

	details, err := session.WaitForStop(timeout)
	if err != nil {
		return errorResult(debugerrors.Timeout("debugger_wait_for_stop", timeoutMs/1000))
	}
	return jsonResult(details)
}
