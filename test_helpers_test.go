package greenwave

import "testing"

func TestTestObserver_Records(t *testing.T) {
	machine := CreateSimpleMachine()
	observer := NewTestObserver()
	machine.AddObserver(observer)

	_ = machine.Start()
	machine.HandleEvent("start", nil)
	machine.HandleEvent("stop", nil)

	entered := observer.EnteredStates()
	want := []string{"idle", "running", "stopped"}
	if len(entered) != len(want) {
		t.Fatalf("Expected %v, got %v", want, entered)
	}
	for i := range want {
		if entered[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, entered)
		}
	}

	observer.Reset()
	AssertObserverCalled(t, observer, 0, 0, 0)
	if observer.LastTransition() != nil {
		t.Error("Expected no last transition after reset")
	}
}
