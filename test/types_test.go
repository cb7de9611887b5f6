package test

import (
	"encoding/json"
	"testing"

	"github.com/debugbridge/dapmcp/pkg/types"
)

func TestLanguageConstants(t *testing.T) {
	tests := []struct {
		lang     types.Language
		expected string
	}{
		{types.LanguageGo, "go"},
		{types.LanguagePython, "python"},
		{types.LanguageRuby, "ruby"},
		{types.LanguageNodeJS, "nodejs"},
		{types.LanguageRust, "rust"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if string(tc.lang) != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, string(tc.lang))
			}
		})
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state    types.SessionState
		expected string
	}{
		{types.StateNotStarted, "not_started"},
		{types.StateInitializing, "initializing"},
		{types.StateInitialized, "initialized"},
		{types.StateLaunching, "launching"},
		{types.StateRunning, "running"},
		{types.StateStopped, "stopped"},
		{types.StateTerminated, "terminated"},
		{types.StateFailed, "failed"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if tc.state.String() != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, tc.state.String())
			}
		})
	}
}

func TestSessionState_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(types.StateStopped)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(data) != `"stopped"` {
		t.Errorf("expected %q, got %q", `"stopped"`, string(data))
	}
}

// TestStateDetails_StoppedFields verifies only the fields relevant to
// StateStopped are populated and round-trip, with the others omitted.
func TestStateDetails_StoppedFields(t *testing.T) {
	details := types.StateDetails{ThreadID: 7, Reason: "breakpoint"}

	data, err := json.Marshal(details)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if _, ok := m["exitCode"]; ok {
		t.Error("exitCode should be omitted when session is stopped, not terminated")
	}
	if _, ok := m["error"]; ok {
		t.Error("error should be omitted when session is stopped, not failed")
	}

	var decoded types.StateDetails
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.ThreadID != 7 || decoded.Reason != "breakpoint" {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}

func TestSessionInfo_JSONSerialization(t *testing.T) {
	info := types.SessionInfo{
		SessionID: "abc-123",
		Language:  types.LanguagePython,
		State:     types.StateRunning,
		PID:       54321,
		Program:   "/path/to/script.py",
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded types.SessionInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.SessionID != info.SessionID {
		t.Errorf("sessionId mismatch")
	}
	if decoded.State != info.State {
		t.Errorf("state mismatch: %v != %v", decoded.State, info.State)
	}
}

func TestStackFrame_JSONSerialization(t *testing.T) {
	frame := types.StackFrame{
		ID:   1,
		Name: "main",
		Line: 42,
		Source: &types.SourceInfo{
			Name: "main.py",
			Path: "/path/to/main.py",
		},
	}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded types.StackFrame
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Source == nil || decoded.Source.Path != frame.Source.Path {
		t.Errorf("source round-trip mismatch")
	}
}

func TestBreakpoint_JSONSerialization(t *testing.T) {
	bp := types.Breakpoint{
		ID:           1,
		Verified:     true,
		Line:         42,
		Condition:    "x > 10",
		HitCondition: "5",
		LogMessage:   "Value: {x}",
	}

	data, err := json.Marshal(bp)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded types.Breakpoint
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Verified != bp.Verified || decoded.Condition != bp.Condition {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}
