// Package adapters provides language-specific debug adapter implementations.
//
// This package defines the Adapter interface that all language-specific
// debuggers must implement, and provides concrete implementations for:
//   - Go (via Delve)
//   - Python (via debugpy)
//   - Ruby (via rdbg / ruby/debug)
//   - Node.js (via vscode-js-debug)
//   - Rust (via CodeLLDB, with a pre-launch compile step)
//
// The Registry type manages the collection of available adapters and
// provides lookup by language. Adapters handle spawning debug adapter
// processes and building the appropriate launch/attach arguments for each
// debugger.
package adapters

import (
	"context"
	"fmt"
	"net"
	"os/exec"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/internal/dap"
	"github.com/debugbridge/dapmcp/pkg/types"
)

// Adapter defines the interface for language-specific debug adapters.
type Adapter interface {
	// Language returns the language this adapter supports.
	Language() types.Language

	// Spawn starts a debug adapter process and returns the address to
	// connect to. Only meaningful for TCP-based adapters; stdio-based
	// adapters implement StdioAdapter instead.
	Spawn(ctx context.Context, program string, args map[string]interface{}) (address string, cmd *exec.Cmd, err error)

	// BuildLaunchArgs builds the launch arguments for the debug adapter.
	BuildLaunchArgs(program string, args map[string]interface{}) map[string]interface{}

	// BuildAttachArgs builds the attach arguments for the debug adapter.
	BuildAttachArgs(args map[string]interface{}) map[string]interface{}
}

// StdioAdapter extends Adapter for adapters that communicate via stdin/stdout
// instead of TCP sockets (e.g. debugpy, CodeLLDB).
type StdioAdapter interface {
	Adapter

	// IsStdio returns true if this adapter uses stdio transport.
	IsStdio() bool

	// SpawnStdio starts a debug adapter process and returns a DAP client
	// connected via the process's stdin/stdout pipes.
	SpawnStdio(ctx context.Context, program string, args map[string]interface{}) (client *dap.Client, cmd *exec.Cmd, err error)
}

// Registry holds all registered adapters.
type Registry struct {
	adapters map[types.Language]Adapter
}

// NewRegistry creates a new adapter registry with all supported adapters.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		adapters: make(map[types.Language]Adapter),
	}

	r.adapters[types.LanguageGo] = NewDelveAdapter(cfg.Adapters.Go)
	r.adapters[types.LanguagePython] = NewDebugpyAdapter(cfg.Adapters.Python)
	r.adapters[types.LanguageRuby] = NewRubyAdapter(cfg.Adapters.Ruby)
	r.adapters[types.LanguageNodeJS] = NewNodeAdapter(cfg.Adapters.Node)
	r.adapters[types.LanguageRust] = NewRustAdapter(cfg.Adapters.Rust)

	return r
}

// Get returns the adapter for a language.
func (r *Registry) Get(lang types.Language) (Adapter, error) {
	adapter, ok := r.adapters[lang]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for language: %s", lang)
	}
	return adapter, nil
}

// Register registers an adapter for a language, overriding any existing one.
func (r *Registry) Register(lang types.Language, adapter Adapter) {
	r.adapters[lang] = adapter
}

// Connect creates a DAP client connected to address via TCP, retrying with
// exponential backoff while the adapter process is still opening its
// listening socket.
func Connect(ctx context.Context, address string) (*dap.Client, error) {
	var transport *dap.Transport

	err := RetryWithBackoff(ctx, DefaultConnectRetry, func() error {
		var dialErr error
		transport, dialErr = dap.NewTCPTransport(address)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to debug adapter at %s: %w", address, err)
	}

	return dap.NewClient(transport), nil
}

// SpawnAndConnect spawns an adapter and returns a connected client. For
// stdio-based adapters, it connects via stdin/stdout pipes. For TCP-based
// adapters, it connects via the returned address.
func SpawnAndConnect(ctx context.Context, adapter Adapter, program string, args map[string]interface{}) (*dap.Client, *exec.Cmd, error) {
	if stdioAdapter, ok := adapter.(StdioAdapter); ok && stdioAdapter.IsStdio() {
		return stdioAdapter.SpawnStdio(ctx, program, args)
	}

	address, cmd, err := adapter.Spawn(ctx, program, args)
	if err != nil {
		return nil, nil, err
	}

	client, err := Connect(ctx, address)
	if err != nil {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill() // best-effort cleanup
		}
		return nil, nil, err
	}

	return client, cmd, nil
}

// findAvailablePort finds an available TCP port by binding to port 0.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type")
	}
	return addr.Port, nil
}
