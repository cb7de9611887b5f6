// Package config provides configuration management for the debug bridge.
//
// Configuration controls:
//   - Capability mode (readonly vs full): determines which tools are available
//   - Permission flags: control spawn, modify, and execute operations
//   - Language-specific adapter settings: paths and flags for each debugger
//   - Safety limits: maximum sessions, session timeout, and request timeouts
//
// Configuration can be loaded from a JSON file or use sensible defaults.
// Readonly mode leaves out the execution-control tools; full mode adds them.
// Spawning adapters and evaluating expressions are governed by allowSpawn and
// allowExecute, not by the mode.
package config

import (
	"encoding/json"
	"os"
	"os/exec"
	"time"
)

// CapabilityMode defines the level of debugging capabilities exposed.
type CapabilityMode string

const (
	ModeReadOnly CapabilityMode = "readonly"
	ModeFull     CapabilityMode = "full"
)

// Config holds the server configuration.
type Config struct {
	Mode         CapabilityMode `json:"mode"`
	AllowSpawn   bool           `json:"allowSpawn"`
	AllowModify  bool           `json:"allowModify"`
	AllowExecute bool           `json:"allowExecute"`

	Adapters AdapterConfigs `json:"adapters"`

	MaxSessions    int           `json:"maxSessions"`
	SessionTimeout time.Duration `json:"sessionTimeout"`

	// LaunchTimeout bounds the initialized-event wait during the launch
	// handshake (spec: 5s default).
	LaunchTimeout time.Duration `json:"launchTimeout"`
	// RequestTimeout bounds routine DAP requests (spec: 2s default).
	RequestTimeout time.Duration `json:"requestTimeout"`
}

// AdapterConfigs holds configuration for each language adapter.
type AdapterConfigs struct {
	Python DebugpyConfig `json:"python"`
	Ruby   RubyConfig    `json:"ruby"`
	Node   NodeConfig    `json:"node"`
	Go     DelveConfig   `json:"go"`
	Rust   RustConfig    `json:"rust"`
}

// DelveConfig holds Delve-specific configuration.
type DelveConfig struct {
	Path       string `json:"path"`
	BuildFlags string `json:"buildFlags"`
}

// DebugpyConfig holds debugpy-specific configuration.
type DebugpyConfig struct {
	PythonPath string `json:"pythonPath"`
}

// RubyConfig holds rdbg (ruby/debug)-specific configuration.
type RubyConfig struct {
	Path string `json:"path"` // path to rdbg
}

// NodeConfig holds Node.js-specific configuration.
type NodeConfig struct {
	NodePath    string `json:"nodePath"`
	JsDebugPath string `json:"jsDebugPath"` // path to vscode-js-debug's dapDebugServer.js
	InspectBrk  bool   `json:"inspectBrk"`
}

// RustConfig holds CodeLLDB-specific configuration plus the compiler
// invocation used by the pre-launch compile hook.
type RustConfig struct {
	Path       string `json:"path"`       // path to codelldb/lldb-dap binary
	CargoPath  string `json:"cargoPath"`  // path to cargo, used when cwd has a Cargo.toml
	RustcPath  string `json:"rustcPath"`  // path to rustc, used for single-file programs
}

// findCodeLLDB searches for a CodeLLDB/lldb-dap binary in common locations.
func findCodeLLDB() string {
	if path, err := exec.LookPath("codelldb"); err == nil {
		return path
	}
	if path, err := exec.LookPath("lldb-dap"); err == nil {
		return path
	}
	locations := []string{
		"/opt/homebrew/bin/lldb-dap",
		"/usr/local/bin/lldb-dap",
		"/usr/bin/lldb-dap",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return "lldb-dap"
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeFull,
		AllowSpawn:     true,
		AllowModify:    true,
		AllowExecute:   true,
		MaxSessions:    10,
		SessionTimeout: 30 * time.Minute,
		LaunchTimeout:  5 * time.Second,
		RequestTimeout: 2 * time.Second,
		Adapters: AdapterConfigs{
			Python: DebugpyConfig{
				PythonPath: "python3",
			},
			Ruby: RubyConfig{
				Path: "rdbg",
			},
			Node: NodeConfig{
				NodePath:   "node",
				InspectBrk: true,
			},
			Go: DelveConfig{
				Path: "dlv",
			},
			Rust: RustConfig{
				Path:      findCodeLLDB(),
				CargoPath: "cargo",
				RustcPath: "rustc",
			},
		},
	}
}

// LoadConfig loads configuration from a JSON file, falling back to defaults
// for an empty path.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CanUseControlTools returns true if execution-control tools are enabled.
func (c *Config) CanUseControlTools() bool {
	return c.Mode == ModeFull
}

// CanSpawn returns true if spawning debug adapters is allowed.
func (c *Config) CanSpawn() bool {
	return c.AllowSpawn
}

// CanModifyVariables returns true if variable modification is allowed.
func (c *Config) CanModifyVariables() bool {
	return c.Mode == ModeFull && c.AllowModify
}

// CanEvaluate returns true if expression evaluation is allowed.
func (c *Config) CanEvaluate() bool {
	return c.AllowExecute
}
