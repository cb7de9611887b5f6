package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the full debugger_* tool surface.
func (s *Server) registerTools() {
	// Session management (both modes)
	s.registerDebuggerStart()
	s.registerDebuggerDisconnect()
	s.registerDebuggerListSessions()
	s.registerDebuggerSessionState()

	// Inspection (both modes)
	s.registerDebuggerStackTrace()
	s.registerDebuggerThreads()
	s.registerDebuggerScopes()
	s.registerDebuggerVariables()
	s.registerDebuggerEvaluate()

	// Control (full mode only)
	if s.config.CanUseControlTools() {
		s.registerDebuggerSetBreakpoint()
		s.registerDebuggerListBreakpoints()
		s.registerDebuggerSetExceptionBreakpoints()
		s.registerDebuggerContinue()
		s.registerDebuggerStepOver()
		s.registerDebuggerStepInto()
		s.registerDebuggerStepOut()
		s.registerDebuggerPause()
		s.registerDebuggerWaitForStop()
	}
}

func (s *Server) registerDebuggerStart() {
	tool := mcp.NewTool("debugger_start",
		mcp.WithDescription("Start a new debug session for a program. Spawns the appropriate debug adapter, runs the launch handshake, and returns a sessionId used by every other tool. Use stopOnEntry=true to pause at the first line instead of running freely."),
		mcp.WithString("language",
			mcp.Required(),
			mcp.Description("Target language: python, ruby, nodejs, go, or rust."),
		),
		mcp.WithString("program",
			mcp.Required(),
			mcp.Description("Path to the program to debug: a script for python/ruby/nodejs, a package directory for go, a source file or Cargo project directory for rust."),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory for the program."),
		),
		mcp.WithBoolean("stopOnEntry",
			mcp.Description("Stop on entry point (default: false)."),
		),
		mcp.WithString("pythonPath",
			mcp.Description("Path to a Python interpreter (for virtualenv support)."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerStart)
}

func (s *Server) registerDebuggerDisconnect() {
	tool := mcp.NewTool("debugger_disconnect",
		mcp.WithDescription("Disconnect from a debug session and tear down its adapter process."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID to disconnect from."),
		),
		mcp.WithBoolean("terminateDebuggee",
			mcp.Description("Terminate the debugged process (default: true)."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerDisconnect)
}

func (s *Server) registerDebuggerListSessions() {
	tool := mcp.NewTool("debugger_list_sessions",
		mcp.WithDescription("List all active debug sessions with their current state."),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerListSessions)
}

func (s *Server) registerDebuggerSessionState() {
	tool := mcp.NewTool("debugger_session_state",
		mcp.WithDescription("Read a session's current lifecycle state (initializing, running, stopped, terminated, failed) and any state-specific details such as stop reason or exit code."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerSessionState)
}

func (s *Server) registerDebuggerStackTrace() {
	tool := mcp.NewTool("debugger_stack_trace",
		mcp.WithDescription("Get the stack trace for a thread. The session must be stopped."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID."),
		),
		mcp.WithNumber("startFrame",
			mcp.Description("First frame to return (default: 0)."),
		),
		mcp.WithNumber("levels",
			mcp.Description("Maximum number of frames to return (default: all)."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerStackTrace)
}

func (s *Server) registerDebuggerThreads() {
	tool := mcp.NewTool("debugger_threads",
		mcp.WithDescription("List all threads in a debug session."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerThreads)
}

func (s *Server) registerDebuggerScopes() {
	tool := mcp.NewTool("debugger_scopes",
		mcp.WithDescription("Get the variable scopes (locals, globals, ...) visible in a stack frame."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("frameId",
			mcp.Required(),
			mcp.Description("The stack frame ID, from debugger_stack_trace."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerScopes)
}

func (s *Server) registerDebuggerVariables() {
	tool := mcp.NewTool("debugger_variables",
		mcp.WithDescription("Get the variables under a scope or nested variable, identified by variablesReference."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("variablesReference",
			mcp.Required(),
			mcp.Description("The variables reference, from debugger_scopes or a previous debugger_variables call."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerVariables)
}

func (s *Server) registerDebuggerEvaluate() {
	tool := mcp.NewTool("debugger_evaluate",
		mcp.WithDescription("Evaluate an expression in the context of a stack frame."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("The expression to evaluate, e.g. 'len(my_list)' or 'x + y'."),
		),
		mcp.WithNumber("frameId",
			mcp.Description("Stack frame ID for context. When omitted, no frame ID is sent to the adapter."),
		),
		mcp.WithString("context",
			mcp.Description("Evaluation context: 'watch', 'hover', or 'repl' (default: 'watch')."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerEvaluate)
}

func (s *Server) registerDebuggerSetBreakpoint() {
	tool := mcp.NewTool("debugger_set_breakpoint",
		mcp.WithDescription("Set a breakpoint in a source file. If the session hasn't finished its launch handshake yet, the breakpoint is buffered and applied automatically once it has."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("The source file path."),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("The line number."),
		),
		mcp.WithString("condition",
			mcp.Description("Expression that must be true for the breakpoint to trigger."),
		),
		mcp.WithString("hitCondition",
			mcp.Description("Expression controlling how many hits to ignore before triggering."),
		),
		mcp.WithString("logMessage",
			mcp.Description("If set, the breakpoint logs this message instead of stopping (a logpoint)."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerSetBreakpoint)
}

func (s *Server) registerDebuggerListBreakpoints() {
	tool := mcp.NewTool("debugger_list_breakpoints",
		mcp.WithDescription("List the breakpoints requested for a session (line, condition, hit condition, log message), grouped by source path. Adapter verification status is not included."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerListBreakpoints)
}

func (s *Server) registerDebuggerSetExceptionBreakpoints() {
	tool := mcp.NewTool("debugger_set_exception_breakpoints",
		mcp.WithDescription("Enable the named exception breakpoint filters reported by the adapter's capabilities (e.g. 'uncaught', 'raised')."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithString("filters",
			mcp.Required(),
			mcp.Description("JSON array of filter IDs to enable, e.g. [\"uncaught\"]."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerSetExceptionBreakpoints)
}

func (s *Server) registerDebuggerContinue() {
	tool := mcp.NewTool("debugger_continue",
		mcp.WithDescription("Resume execution on a thread until the next breakpoint, exception, or program end. Returns immediately; use debugger_wait_for_stop or debugger_session_state to observe the result."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("threadId",
			mcp.Description("The thread ID to continue. Omit to resume all threads."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerContinue)
}

func (s *Server) registerDebuggerStepOver() {
	tool := mcp.NewTool("debugger_step_over",
		mcp.WithDescription("Step to the next line in the current function, stepping over any calls."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerStepOver)
}

func (s *Server) registerDebuggerStepInto() {
	tool := mcp.NewTool("debugger_step_into",
		mcp.WithDescription("Step into the function called on the current line."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerStepInto)
}

func (s *Server) registerDebuggerStepOut() {
	tool := mcp.NewTool("debugger_step_out",
		mcp.WithDescription("Step out of the current function, back to its caller."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerStepOut)
}

func (s *Server) registerDebuggerPause() {
	tool := mcp.NewTool("debugger_pause",
		mcp.WithDescription("Pause a running thread so its state can be inspected."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerPause)
}

func (s *Server) registerDebuggerWaitForStop() {
	tool := mcp.NewTool("debugger_wait_for_stop",
		mcp.WithDescription("Block until the session stops (breakpoint hit, step complete, exception, or pause) or a timeout elapses. Use after debugger_continue/step_* instead of polling debugger_session_state."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID."),
		),
		mcp.WithNumber("timeoutMs",
			mcp.Description("How long to wait, in milliseconds (default: 30000)."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebuggerWaitForStop)
}
