package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/pkg/types"
)

// NodeAdapter implements the Adapter interface for Node.js via vscode-js-debug.
type NodeAdapter struct {
	nodePath    string
	jsDebugPath string
	inspectBrk  bool
}

// NewNodeAdapter creates a new Node.js adapter.
func NewNodeAdapter(cfg config.NodeConfig) *NodeAdapter {
	nodePath := cfg.NodePath
	if nodePath == "" {
		nodePath = "node"
	}

	return &NodeAdapter{
		nodePath:    nodePath,
		jsDebugPath: cfg.JsDebugPath,
		inspectBrk:  cfg.InspectBrk,
	}
}

// Language returns the language this adapter supports.
func (n *NodeAdapter) Language() types.Language {
	return types.LanguageNodeJS
}

// Spawn starts the vscode-js-debug DAP server. This spawns vscode-js-debug,
// which provides a proper DAP interface and handles the translation to the
// V8 inspector protocol internally.
func (n *NodeAdapter) Spawn(ctx context.Context, program string, args map[string]interface{}) (string, *exec.Cmd, error) {
	if n.jsDebugPath == "" {
		return "", nil, fmt.Errorf("jsDebugPath not configured: vscode-js-debug is required for Node.js debugging. " +
			"Install from https://github.com/microsoft/vscode-js-debug/releases and set jsDebugPath in config")
	}

	port, err := findAvailablePort()
	if err != nil {
		return "", nil, fmt.Errorf("failed to find available port: %w", err)
	}

	address := fmt.Sprintf("127.0.0.1:%d", port)

	// Usage: node dapDebugServer.js <port> [host]
	cmd := exec.CommandContext(ctx, n.nodePath, n.jsDebugPath, fmt.Sprintf("%d", port), "127.0.0.1")
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	if cwd, ok := args["cwd"].(string); ok && cwd != "" {
		cmd.Dir = cwd
	}

	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("failed to start vscode-js-debug: %w", err)
	}

	time.Sleep(500 * time.Millisecond)

	return address, cmd, nil
}

// BuildLaunchArgs builds the launch arguments for Node.js debugging.
func (n *NodeAdapter) BuildLaunchArgs(program string, args map[string]interface{}) map[string]interface{} {
	launchArgs := map[string]interface{}{
		"type":    "pwa-node",
		"request": "launch",
		"program": program,
		"console": "internalConsole",
	}

	if programArgs, ok := args["args"].([]interface{}); ok {
		strArgs := make([]string, len(programArgs))
		for i, a := range programArgs {
			strArgs[i] = fmt.Sprint(a)
		}
		launchArgs["args"] = strArgs
	}

	if cwd, ok := args["cwd"].(string); ok {
		launchArgs["cwd"] = cwd
	}

	if env, ok := args["env"].(map[string]interface{}); ok {
		envMap := make(map[string]string)
		for k, v := range env {
			envMap[k] = fmt.Sprint(v)
		}
		launchArgs["env"] = envMap
	}

	if stopOnEntry, ok := args["stopOnEntry"].(bool); ok {
		launchArgs["stopOnEntry"] = stopOnEntry
	}

	if runtimeExecutable, ok := args["runtimeExecutable"].(string); ok {
		launchArgs["runtimeExecutable"] = runtimeExecutable
	}

	if runtimeArgs, ok := args["runtimeArgs"].([]interface{}); ok {
		strArgs := make([]string, len(runtimeArgs))
		for i, a := range runtimeArgs {
			strArgs[i] = fmt.Sprint(a)
		}
		launchArgs["runtimeArgs"] = strArgs
	}

	if outFiles, ok := args["outFiles"].([]interface{}); ok {
		strFiles := make([]string, len(outFiles))
		for i, f := range outFiles {
			strFiles[i] = fmt.Sprint(f)
		}
		launchArgs["outFiles"] = strFiles
	}

	if sourceMaps, ok := args["sourceMaps"].(bool); ok {
		launchArgs["sourceMaps"] = sourceMaps
	} else {
		launchArgs["sourceMaps"] = true
	}

	return launchArgs
}

// BuildAttachArgs builds the attach arguments for Node.js debugging (attach
// to a process already running with --inspect/--inspect-brk).
func (n *NodeAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := map[string]interface{}{
		"type":    "pwa-node",
		"request": "attach",
	}

	if host, ok := args["host"].(string); ok {
		attachArgs["address"] = host
	} else {
		attachArgs["address"] = "127.0.0.1"
	}

	if port, ok := args["port"].(float64); ok {
		attachArgs["port"] = int(port)
	} else {
		attachArgs["port"] = 9229
	}

	if pid, ok := args["pid"].(float64); ok {
		attachArgs["processId"] = int(pid)
	}

	return attachArgs
}
