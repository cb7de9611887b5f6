package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/internal/dap"
	"github.com/debugbridge/dapmcp/pkg/types"
)

// RustAdapter implements the StdioAdapter interface for Rust via CodeLLDB
// (lldb-dap). Unlike the other adapters, launching a Rust program requires a
// compile step first: debugpy and node are already executable bytecode/script
// targets, delve builds its own target, but CodeLLDB needs a debug binary on
// disk before it can do anything. CompileTarget performs that step.
type RustAdapter struct {
	codeLLDBPath string
	cargoPath    string
	rustcPath    string
}

// NewRustAdapter creates a new Rust/CodeLLDB adapter.
func NewRustAdapter(cfg config.RustConfig) *RustAdapter {
	path := cfg.Path
	if path == "" {
		path = "lldb-dap"
	}
	cargoPath := cfg.CargoPath
	if cargoPath == "" {
		cargoPath = "cargo"
	}
	rustcPath := cfg.RustcPath
	if rustcPath == "" {
		rustcPath = "rustc"
	}

	return &RustAdapter{
		codeLLDBPath: path,
		cargoPath:    cargoPath,
		rustcPath:    rustcPath,
	}
}

// Language returns the language this adapter supports.
func (r *RustAdapter) Language() types.Language {
	return types.LanguageRust
}

// IsStdio returns true because lldb-dap uses stdio transport.
func (r *RustAdapter) IsStdio() bool {
	return true
}

// CompileError carries the compiler's stderr output for a failed
// CompileTarget call.
type CompileError struct {
	Program string
	Stderr  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s: %s", e.Program, e.Stderr)
}

// CompileTarget produces a debug binary for program and returns its path. If
// cwd contains a Cargo.toml, it runs `cargo build` and locates the produced
// executable; otherwise it treats program as a single source file and
// invokes rustc directly. Compiler failures are returned as *CompileError so
// callers can surface the stderr verbatim.
func (r *RustAdapter) CompileTarget(ctx context.Context, program, cwd string) (string, error) {
	if cwd != "" {
		if _, err := os.Stat(filepath.Join(cwd, "Cargo.toml")); err == nil {
			return r.compileCargoProject(ctx, cwd)
		}
	}
	return r.compileSingleFile(ctx, program)
}

func (r *RustAdapter) compileSingleFile(ctx context.Context, program string) (string, error) {
	outPath := program + ".dbg"

	//nolint:gosec // G204: this is a debug adapter that intentionally spawns subprocesses
	cmd := exec.CommandContext(ctx, r.rustcPath, "-g", "-C", "opt-level=0", "-o", outPath, program)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CompileError{Program: program, Stderr: stderr.String()}
	}

	return outPath, nil
}

func (r *RustAdapter) compileCargoProject(ctx context.Context, cwd string) (string, error) {
	//nolint:gosec // G204: this is a debug adapter that intentionally spawns subprocesses
	cmd := exec.CommandContext(ctx, r.cargoPath, "build")
	cmd.Dir = cwd
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CompileError{Program: cwd, Stderr: stderr.String()}
	}

	return findCargoBinary(cwd)
}

// findCargoBinary locates the executable cargo build produced under
// target/debug, preferring one named after the project directory.
func findCargoBinary(cwd string) (string, error) {
	debugDir := filepath.Join(cwd, "target", "debug")

	candidate := filepath.Join(debugDir, filepath.Base(cwd))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	entries, err := os.ReadDir(debugDir)
	if err != nil {
		return "", fmt.Errorf("cargo build succeeded but target/debug could not be read: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == "" && name[0] != '.' {
			return filepath.Join(debugDir, name), nil
		}
	}

	return "", fmt.Errorf("no executable found in %s after cargo build", debugDir)
}

// Spawn is implemented for interface compatibility but should not be called
// directly; CodeLLDB is stdio-based, use SpawnStdio instead.
func (r *RustAdapter) Spawn(ctx context.Context, program string, args map[string]interface{}) (string, *exec.Cmd, error) {
	return "", nil, fmt.Errorf("rust adapter uses stdio transport, use SpawnStdio instead")
}

// SpawnStdio starts lldb-dap and returns a DAP client connected via
// stdin/stdout. program must already be a compiled debug binary; callers
// are expected to have run CompileTarget first.
func (r *RustAdapter) SpawnStdio(ctx context.Context, program string, args map[string]interface{}) (*dap.Client, *exec.Cmd, error) {
	//nolint:gosec // G204: this is a debug adapter that intentionally spawns subprocesses
	cmd := exec.CommandContext(ctx, r.codeLLDBPath, "--repl-mode=auto")
	cmd.Env = os.Environ()
	setProcAttr(cmd)

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
		return nil, nil, fmt.Errorf("failed to start lldb-dap: %w", err)
	}

	transport := dap.NewStdioTransport(stdin, stdout)
	client := dap.NewClient(transport)

	return client, cmd, nil
}

// BuildLaunchArgs builds the launch arguments for lldb-dap. program is the
// compiled debug binary's path, not the original .rs source.
func (r *RustAdapter) BuildLaunchArgs(program string, args map[string]interface{}) map[string]interface{} {
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

	if cwd, ok := args["cwd"].(string); ok && cwd != "" {
		launchArgs["cwd"] = cwd
	}

	if env, ok := args["env"].(map[string]interface{}); ok {
		envList := make([]string, 0, len(env))
		for k, v := range env {
			envList = append(envList, fmt.Sprintf("%s=%v", k, v))
		}
		launchArgs["env"] = envList
	}

	if stopOnEntry, ok := args["stopOnEntry"].(bool); ok {
		launchArgs["stopOnEntry"] = stopOnEntry
	}

	if initCommands, ok := args["initCommands"].([]interface{}); ok {
		cmds := make([]string, len(initCommands))
		for i, c := range initCommands {
			cmds[i] = fmt.Sprint(c)
		}
		launchArgs["initCommands"] = cmds
	}

	return launchArgs
}

// BuildAttachArgs builds the attach arguments for lldb-dap.
func (r *RustAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := map[string]interface{}{}

	if pid, ok := args["pid"].(float64); ok {
		attachArgs["pid"] = int(pid)
	}

	if program, ok := args["program"].(string); ok {
		attachArgs["program"] = program
	}

	return attachArgs
}
