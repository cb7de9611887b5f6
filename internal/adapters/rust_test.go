package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/pkg/types"
)

func TestNewRustAdapter_Defaults(t *testing.T) {
	adapter := NewRustAdapter(config.RustConfig{})
	if adapter.codeLLDBPath != "lldb-dap" {
		t.Errorf("expected default lldb-dap path, got %q", adapter.codeLLDBPath)
	}
	if adapter.cargoPath != "cargo" {
		t.Errorf("expected default cargo path, got %q", adapter.cargoPath)
	}
	if adapter.rustcPath != "rustc" {
		t.Errorf("expected default rustc path, got %q", adapter.rustcPath)
	}
}

func TestRustAdapter_Language(t *testing.T) {
	adapter := NewRustAdapter(config.RustConfig{})
	if adapter.Language() != types.LanguageRust {
		t.Errorf("expected LanguageRust, got %s", adapter.Language())
	}
	if !adapter.IsStdio() {
		t.Error("expected IsStdio to be true")
	}
}

func TestRustAdapter_Spawn_RejectsDirectCall(t *testing.T) {
	adapter := NewRustAdapter(config.RustConfig{})
	_, _, err := adapter.Spawn(context.Background(), "/tmp/prog", nil)
	if err == nil {
		t.Error("expected Spawn to reject direct use for a stdio adapter")
	}
}

func TestCompileError_Message(t *testing.T) {
	err := &CompileError{Program: "/tmp/main.rs", Stderr: "error[E0425]: cannot find value"}
	if err.Error() == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestFindCargoBinary_PrefersProjectNamedBinary(t *testing.T) {
	dir := t.TempDir()
	projectName := filepath.Base(dir)
	debugDir := filepath.Join(dir, "target", "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		t.Fatalf("failed to create debug dir: %v", err)
	}
	binPath := filepath.Join(debugDir, projectName)
	if err := os.WriteFile(binPath, []byte("binary"), 0o755); err != nil {
		t.Fatalf("failed to write binary: %v", err)
	}

	found, err := findCargoBinary(dir)
	if err != nil {
		t.Fatalf("findCargoBinary failed: %v", err)
	}
	if found != binPath {
		t.Errorf("expected %q, got %q", binPath, found)
	}
}

func TestFindCargoBinary_FallsBackToScanningDebugDir(t *testing.T) {
	dir := t.TempDir()
	debugDir := filepath.Join(dir, "target", "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		t.Fatalf("failed to create debug dir: %v", err)
	}
	// Not named after the project directory, and there's a .d dep-info file
	// alongside it that should be skipped.
	binPath := filepath.Join(debugDir, "differently-named")
	if err := os.WriteFile(binPath, []byte("binary"), 0o755); err != nil {
		t.Fatalf("failed to write binary: %v", err)
	}
	if err := os.WriteFile(filepath.Join(debugDir, "differently-named.d"), []byte(""), 0o644); err != nil {
		t.Fatalf("failed to write dep-info file: %v", err)
	}

	found, err := findCargoBinary(dir)
	if err != nil {
		t.Fatalf("findCargoBinary failed: %v", err)
	}
	if found != binPath {
		t.Errorf("expected %q, got %q", binPath, found)
	}
}

func TestRustAdapter_BuildLaunchArgs(t *testing.T) {
	adapter := NewRustAdapter(config.RustConfig{})

	args := adapter.BuildLaunchArgs("/app/target/debug/app", map[string]interface{}{
		"args":        []interface{}{"--flag"},
		"cwd":         "/app",
		"stopOnEntry": true,
	})

	if args["program"] != "/app/target/debug/app" {
		t.Errorf("expected compiled binary path, got %v", args["program"])
	}
	if args["stopOnEntry"] != true {
		t.Errorf("expected stopOnEntry true, got %v", args["stopOnEntry"])
	}
}

func TestRustAdapter_BuildAttachArgs(t *testing.T) {
	adapter := NewRustAdapter(config.RustConfig{})

	args := adapter.BuildAttachArgs(map[string]interface{}{
		"pid":     float64(4242),
		"program": "/app/target/debug/app",
	})

	if args["pid"] != 4242 {
		t.Errorf("expected pid 4242, got %v", args["pid"])
	}
	if args["program"] != "/app/target/debug/app" {
		t.Errorf("expected program to round-trip, got %v", args["program"])
	}
}
