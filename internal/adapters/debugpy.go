package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/internal/dap"
	"github.com/debugbridge/dapmcp/pkg/types"
)

// DebugpyAdapter implements the StdioAdapter interface for Python via
// debugpy. debugpy.adapter speaks DAP over stdin/stdout when invoked without
// --host/--port, so it is wired up the same way as the Rust/CodeLLDB
// adapter: one child process, one pair of pipes, no port to race on.
type DebugpyAdapter struct {
	pythonPath string
}

// NewDebugpyAdapter creates a new debugpy adapter.
func NewDebugpyAdapter(cfg config.DebugpyConfig) *DebugpyAdapter {
	pythonPath := cfg.PythonPath
	if pythonPath == "" {
		pythonPath = "python3"
	}

	return &DebugpyAdapter{pythonPath: pythonPath}
}

// Language returns the language this adapter supports.
func (d *DebugpyAdapter) Language() types.Language {
	return types.LanguagePython
}

// IsStdio returns true because debugpy.adapter is driven over stdin/stdout.
func (d *DebugpyAdapter) IsStdio() bool {
	return true
}

// getPythonPath returns the Python interpreter path, checking args first for
// venv support. Supports both VS Code's "python" attribute and debugpy's
// "pythonPath" attribute.
func (d *DebugpyAdapter) getPythonPath(args map[string]interface{}) string {
	if p, ok := args["python"].(string); ok && p != "" {
		return p
	}
	if p, ok := args["pythonPath"].(string); ok && p != "" {
		return p
	}
	return d.pythonPath
}

// detectVenvRoot checks if pythonPath is inside a venv and returns the root
// directory, or "" if it isn't.
func (d *DebugpyAdapter) detectVenvRoot(pythonPath string) string {
	binDir := filepath.Dir(pythonPath)
	venvRoot := filepath.Dir(binDir)

	if _, err := os.Stat(filepath.Join(venvRoot, "pyvenv.cfg")); err == nil {
		return venvRoot
	}
	return ""
}

// Spawn is implemented for interface compatibility but should not be called
// directly; debugpy is stdio-based, use SpawnStdio instead.
func (d *DebugpyAdapter) Spawn(ctx context.Context, program string, args map[string]interface{}) (string, *exec.Cmd, error) {
	return "", nil, fmt.Errorf("debugpy adapter uses stdio transport, use SpawnStdio instead")
}

// SpawnStdio starts debugpy.adapter and returns a DAP client connected via
// stdin/stdout.
func (d *DebugpyAdapter) SpawnStdio(ctx context.Context, program string, args map[string]interface{}) (*dap.Client, *exec.Cmd, error) {
	pythonPath := d.getPythonPath(args)

	//nolint:gosec // G204: this is a debug adapter that intentionally spawns subprocesses
	cmd := exec.CommandContext(ctx, pythonPath, "-m", "debugpy.adapter")
	cmd.Env = os.Environ()
	setProcAttr(cmd)

	if venvRoot := d.detectVenvRoot(pythonPath); venvRoot != "" {
		cmd.Env = append(cmd.Env, "VIRTUAL_ENV="+venvRoot)
		binDir := filepath.Dir(pythonPath)
		for i, env := range cmd.Env {
			if strings.HasPrefix(env, "PATH=") {
				cmd.Env[i] = "PATH=" + binDir + string(os.PathListSeparator) + env[5:]
				break
			}
		}
	}

	if env, ok := args["env"].(map[string]interface{}); ok {
		for k, v := range env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, fmt.Sprint(v)))
		}
	}

	if cwd, ok := args["cwd"].(string); ok && cwd != "" {
		cmd.Dir = cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, nil, fmt.Errorf("failed to start debugpy: %w", err)
	}

	transport := dap.NewStdioTransport(stdin, stdout)
	client := dap.NewClient(transport)

	return client, cmd, nil
}

// BuildLaunchArgs builds the launch arguments for debugpy.
func (d *DebugpyAdapter) BuildLaunchArgs(program string, args map[string]interface{}) map[string]interface{} {
	launchArgs := map[string]interface{}{
		"type":    "python",
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

	if module, ok := args["module"].(string); ok {
		delete(launchArgs, "program")
		launchArgs["module"] = module
	}

	if pythonPath, ok := args["pythonPath"].(string); ok {
		launchArgs["pythonPath"] = pythonPath
	}

	return launchArgs
}

// BuildAttachArgs builds the attach arguments for debugpy.
func (d *DebugpyAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := map[string]interface{}{
		"type":    "python",
		"request": "attach",
	}

	if host, ok := args["host"].(string); ok {
		attachArgs["host"] = host
	} else {
		attachArgs["host"] = "127.0.0.1"
	}

	if port, ok := args["port"].(float64); ok {
		attachArgs["port"] = int(port)
	}

	if pid, ok := args["pid"].(float64); ok {
		attachArgs["processId"] = int(pid)
	}

	return attachArgs
}
