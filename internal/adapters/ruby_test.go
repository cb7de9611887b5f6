package adapters

import (
	"testing"

	"github.com/debugbridge/dapmcp/internal/config"
	"github.com/debugbridge/dapmcp/pkg/types"
)

func TestNewRubyAdapter_DefaultsPath(t *testing.T) {
	adapter := NewRubyAdapter(config.RubyConfig{})
	if adapter.rdbgPath != "rdbg" {
		t.Errorf("expected default rdbg path, got %q", adapter.rdbgPath)
	}
}

func TestRubyAdapter_Language(t *testing.T) {
	adapter := NewRubyAdapter(config.RubyConfig{})
	if adapter.Language() != types.LanguageRuby {
		t.Errorf("expected LanguageRuby, got %s", adapter.Language())
	}
}

func TestRubyAdapter_BuildLaunchArgs(t *testing.T) {
	adapter := NewRubyAdapter(config.RubyConfig{})

	args := adapter.BuildLaunchArgs("/app/script.rb", map[string]interface{}{
		"args":        []interface{}{"--flag"},
		"cwd":         "/app",
		"env":         map[string]interface{}{"RUBY_ENV": "test"},
		"stopOnEntry": true,
	})

	if args["program"] != "/app/script.rb" {
		t.Errorf("expected program to be set, got %v", args["program"])
	}
	if args["cwd"] != "/app" {
		t.Errorf("expected cwd to be set, got %v", args["cwd"])
	}
	if args["stopOnEntry"] != true {
		t.Errorf("expected stopOnEntry true, got %v", args["stopOnEntry"])
	}
	strArgs, ok := args["args"].([]string)
	if !ok || len(strArgs) != 1 || strArgs[0] != "--flag" {
		t.Errorf("expected program args to round-trip, got %v", args["args"])
	}
}

func TestRubyAdapter_BuildAttachArgs_DefaultsHost(t *testing.T) {
	adapter := NewRubyAdapter(config.RubyConfig{})

	args := adapter.BuildAttachArgs(map[string]interface{}{"port": float64(12345)})

	if args["host"] != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %v", args["host"])
	}
	if args["port"] != 12345 {
		t.Errorf("expected port 12345, got %v", args["port"])
	}
}
