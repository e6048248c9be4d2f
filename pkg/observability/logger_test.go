package observability

import "testing"

func TestNoopLogger_NeverPanics(t *testing.T) {
	l := NewNoopLogger()
	l.Debug("x", nil)
	l.Info("x", map[string]interface{}{"a": 1})
	l.Warn("x", nil)
	l.Error("x", nil)
	l.Debugf("x %d", 1)
	derived := l.With(map[string]interface{}{"k": "v"})
	derived.Info("y", nil)
}

func TestStandardLogger_WithMergesFields(t *testing.T) {
	base := NewStandardLogger("test").(*StandardLogger)
	derived := base.With(map[string]interface{}{"request_id": "abc"}).(*StandardLogger)

	if derived.fields["request_id"] != "abc" {
		t.Fatalf("expected merged field to carry over, got %v", derived.fields)
	}

	grandchild := derived.With(map[string]interface{}{"attempt": 2}).(*StandardLogger)
	if grandchild.fields["request_id"] != "abc" || grandchild.fields["attempt"] != 2 {
		t.Fatalf("expected both ancestor fields present, got %v", grandchild.fields)
	}
}

func TestStandardLogger_LevelFiltering(t *testing.T) {
	base := NewStandardLogger("test").(*StandardLogger).WithLevel(LogLevelWarn)
	if base.levelEnabled(LogLevelDebug) {
		t.Fatal("debug should be filtered at warn level")
	}
	if !base.levelEnabled(LogLevelError) {
		t.Fatal("error should never be filtered")
	}
}
