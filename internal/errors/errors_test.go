package errors

import (
	"errors"
	"testing"
)

func TestSessionNotFound(t *testing.T) {
	err := SessionNotFound("abc-123")
	if err.Code != CodeSessionNotFound {
		t.Errorf("expected code %s, got %s", CodeSessionNotFound, err.Code)
	}
	if err.Details["sessionId"] != "abc-123" {
		t.Errorf("expected sessionId detail to be set")
	}
	if err.Hint == "" {
		t.Error("expected a recovery hint")
	}
}

func TestDebugError_Error_IncludesHint(t *testing.T) {
	err := &DebugError{Message: "something broke", Hint: "try again"}
	msg := err.Error()
	if msg != "something broke | Hint: try again" {
		t.Errorf("unexpected error string: %q", msg)
	}
}

func TestDebugError_Error_NoHint(t *testing.T) {
	err := &DebugError{Message: "something broke"}
	if err.Error() != "something broke" {
		t.Errorf("unexpected error string: %q", err.Error())
	}
}

func TestDebugError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(CodeInternal, "wrapped", "", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestDebugError_WithDetails(t *testing.T) {
	err := &DebugError{Message: "x"}
	err.WithDetails("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected detail to be set")
	}
}

func TestFromError_PassesThroughDebugError(t *testing.T) {
	original := SessionNotFound("s1")
	result := FromError(original)
	if result != original {
		t.Error("expected FromError to return the same *DebugError unchanged")
	}
}

func TestFromError_WrapsGenericError(t *testing.T) {
	generic := errors.New("boom")
	result := FromError(generic)
	if result.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, result.Code)
	}
	if result.Cause != generic {
		t.Error("expected cause to be preserved")
	}
}

func TestAdapterNotFound_ListsSupportedLanguages(t *testing.T) {
	err := AdapterNotFound("cobol", []string{"python", "go"})
	if err.Details["requestedLanguage"] != "cobol" {
		t.Errorf("expected requested language to be recorded")
	}
	langs, ok := err.Details["supportedLanguages"].([]string)
	if !ok || len(langs) != 2 {
		t.Errorf("expected supported languages slice of length 2, got %v", err.Details["supportedLanguages"])
	}
}
