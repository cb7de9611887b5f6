package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/internal/mcp"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "full", "Capability mode: 'readonly' or 'full'")
	showVersion := flag.Bool("version", false, "Show version and exit")
	help := flag.Bool("help", false, "Show help and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("debugbridge version %s\n", version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	switch *mode {
	case "readonly":
		cfg.Mode = config.ModeReadOnly
	case "full":
		cfg.Mode = config.ModeFull
	}

	server := mcp.NewServer(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("shutting down...")
		server.Close()
		os.Exit(0)
	}()

	log.Println("debugbridge server starting...")
	if err := server.ServeStdio(); err != nil {
		server.Close()
		log.Fatalf("server error: %v", err)
	}
	server.Close()
}

func printHelp() {
	fmt.Println(`debugbridge: Debug Adapter Protocol MCP Server

A Model Context Protocol (MCP) server that exposes Debug Adapter Protocol (DAP)
functionality to LLMs, enabling AI agents to introspect and debug running
programs across multiple languages.

USAGE:
    debugbridge [OPTIONS]

OPTIONS:
    -config <path>     Path to configuration file (JSON)
    -mode <mode>       Capability mode: 'readonly' or 'full' (default: full)
    -version           Show version and exit
    -help              Show this help message

SUPPORTED LANGUAGES:
    - Python (via debugpy, stdio)
    - Ruby (via rdbg / ruby/debug, TCP)
    - Node.js (via vscode-js-debug, TCP)
    - Go (via Delve, TCP)
    - Rust (via CodeLLDB, stdio, with a pre-launch compile step)

CONFIGURATION:
    Create a JSON configuration file to customize behavior (durations are
    JSON numbers in nanoseconds):

    {
        "mode": "full",
        "allowSpawn": true,
        "allowModify": true,
        "maxSessions": 10,
        "sessionTimeout": 1800000000000,
        "launchTimeout": 5000000000,
        "requestTimeout": 2000000000,
        "adapters": {
            "go": { "path": "dlv" },
            "python": { "pythonPath": "python3" },
            "ruby": { "path": "rdbg" },
            "node": { "nodePath": "node" },
            "rust": { "path": "lldb-dap", "cargoPath": "cargo", "rustcPath": "rustc" }
        }
    }

MCP INTEGRATION:
    Add to your MCP client configuration:

    Claude Code (~/.claude.json):
    {
        "mcpServers": {
            "debugbridge": {
                "command": "debugbridge",
                "args": ["-mode", "full"]
            }
        }
    }

TOOLS:
    Session management (always available):
        debugger_start              Start a new debug session
        debugger_disconnect         End a debug session
        debugger_list_sessions      List active sessions
        debugger_session_state      Read a session's lifecycle state

    Inspection (always available):
        debugger_threads            List threads
        debugger_stack_trace        Get a thread's call stack
        debugger_scopes             Get a frame's variable scopes
        debugger_variables          Get variables under a scope or reference
        debugger_evaluate           Evaluate an expression

    Control (full mode only):
        debugger_set_breakpoint              Set a source breakpoint
        debugger_list_breakpoints            List tracked breakpoints
        debugger_set_exception_breakpoints   Enable exception breakpoint filters
        debugger_continue                    Resume execution
        debugger_step_over                   Step over
        debugger_step_into                   Step into
        debugger_step_out                    Step out
        debugger_pause                       Pause execution
        debugger_wait_for_stop               Block until the session stops

For more information, visit: https://github.com/debugbridge/dapmcp`)
}
