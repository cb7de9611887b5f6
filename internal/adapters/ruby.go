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

// RubyAdapter implements the Adapter interface for Ruby via rdbg
// (ruby/debug), invoked with --open to have it listen for a DAP connection
// over TCP.
type RubyAdapter struct {
	rdbgPath string
}

// NewRubyAdapter creates a new rdbg adapter.
func NewRubyAdapter(cfg config.RubyConfig) *RubyAdapter {
	path := cfg.Path
	if path == "" {
		path = "rdbg"
	}

	return &RubyAdapter{rdbgPath: path}
}

// Language returns the language this adapter supports.
func (r *RubyAdapter) Language() types.Language {
	return types.LanguageRuby
}

// Spawn starts rdbg in DAP server mode.
func (r *RubyAdapter) Spawn(ctx context.Context, program string, args map[string]interface{}) (string, *exec.Cmd, error) {
	port, err := findAvailablePort()
	if err != nil {
		return "", nil, fmt.Errorf("failed to find available port: %w", err)
	}

	address := fmt.Sprintf("127.0.0.1:%d", port)

	rdbgArgs := []string{
		"--open",
		"--port", fmt.Sprintf("%d", port),
		"--command",
	}

	programArgs, _ := args["args"].([]interface{})
	rdbgArgs = append(rdbgArgs, program)
	for _, a := range programArgs {
		rdbgArgs = append(rdbgArgs, fmt.Sprint(a))
	}

	//nolint:gosec // G204: this is a debug adapter that intentionally spawns subprocesses
	cmd := exec.CommandContext(ctx, r.rdbgPath, rdbgArgs...)
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	if env, ok := args["env"].(map[string]interface{}); ok {
		for k, v := range env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, fmt.Sprint(v)))
		}
	}

	if cwd, ok := args["cwd"].(string); ok && cwd != "" {
		cmd.Dir = cwd
	}

	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("failed to start rdbg: %w", err)
	}

	time.Sleep(500 * time.Millisecond)

	return address, cmd, nil
}

// BuildLaunchArgs builds the launch arguments rdbg expects.
func (r *RubyAdapter) BuildLaunchArgs(program string, args map[string]interface{}) map[string]interface{} {
	launchArgs := map[string]interface{}{
		"program": program,
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

	return launchArgs
}

// BuildAttachArgs builds the attach arguments for rdbg (attach to an
// already-running rdbg --open session).
func (r *RubyAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := map[string]interface{}{}

	if host, ok := args["host"].(string); ok {
		attachArgs["host"] = host
	} else {
		attachArgs["host"] = "127.0.0.1"
	}

	if port, ok := args["port"].(float64); ok {
		attachArgs["port"] = int(port)
	}

	return attachArgs
}
