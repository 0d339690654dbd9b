package greenwave

import (
	"strings"
	"testing"
)

func TestBuilder_DeclarationOrder(t *testing.T) {
	definition := NewMachine().
		State("idle").Initial().
		To("active").On("proximity").
		State("active").
		To("cleared").On("pass").
		State("cleared").
		Build()

	if definition.GetInitialState() != "idle" {
		t.Errorf("Expected initial state idle, got %s", definition.GetInitialState())
	}

	order := definition.GetStateOrder()
	want := []string{"idle", "active", "cleared"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("Expected order %v, got %v", want, order)
	}

	transitions := definition.GetTransitions()
	if len(transitions["idle"]) != 1 || transitions["idle"][0].TargetState != "active" {
		t.Errorf("Unexpected transitions out of idle: %+v", transitions["idle"])
	}
}

func TestBuilder_ReopenState(t *testing.T) {
	builder := NewMachine()
	builder.State("a").Initial().To("b").On("x")
	builder.State("b")
	builder.State("a").To("c").On("y")
	builder.State("c")

	definition := builder.Build()
	if got := len(definition.GetTransitions()["a"]); got != 2 {
		t.Errorf("Expected 2 transitions from reopened state, got %d", got)
	}
	if got := len(definition.GetStateOrder()); got != 3 {
		t.Errorf("Expected 3 states, got %d", got)
	}
}

func TestBuilder_BuildE(t *testing.T) {
	tests := []struct {
		name    string
		builder func() MachineBuilder
	}{
		{"no initial state", func() MachineBuilder {
			b := NewMachine()
			b.State("a")
			return b
		}},
		{"unknown target", func() MachineBuilder {
			b := NewMachine()
			b.State("a").Initial().To("ghost").On("x")
			return b
		}},
		{"missing event", func() MachineBuilder {
			b := NewMachine()
			b.State("a").Initial().To("b")
			b.State("b")
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder().BuildE()
			if !IsConfigurationError(err) {
				t.Errorf("Expected configuration error, got %v", err)
			}
		})
	}
}

func TestBuilder_BuildPanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected Build to panic without an initial state")
		}
	}()
	NewMachine().State("a").Build()
}

func TestBuilder_InstancesAreIndependent(t *testing.T) {
	definition := NewMachine().
		State("idle").Initial().
		To("active").On("go").
		State("active").
		Build()

	first := definition.CreateInstance()
	second := definition.CreateInstance()
	_ = first.Start()
	_ = second.Start()

	first.HandleEvent("go", nil)
	AssertState(t, first, "active")
	AssertState(t, second, "idle")
}
