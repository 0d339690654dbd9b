package greenwave

import "testing"

func TestTransition_Builders(t *testing.T) {
	guard := func(ctx Context) bool { return true }
	action := func(ctx Context) error { return nil }

	transition := NewTransition("idle", "active", "proximity").
		WithGuard(guard).
		WithAction(action)

	if transition.SourceState != "idle" || transition.TargetState != "active" {
		t.Errorf("Unexpected endpoints %s->%s", transition.SourceState, transition.TargetState)
	}
	if transition.Guard == nil || transition.Action == nil {
		t.Error("Expected guard and action to be set")
	}
	if !transition.matches("proximity") || transition.matches("pass") {
		t.Error("Expected transition to match only its own event")
	}
}
