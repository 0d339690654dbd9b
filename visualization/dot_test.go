package visualization_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anggasct/greenwave"
	"github.com/anggasct/greenwave/signal"
	"github.com/anggasct/greenwave/visualization"
)

func TestDOTGeneration(t *testing.T) {
	machineDefinition := greenwave.NewMachine().
		State("idle").Initial().
		To("running").On("start").
		State("running").
		To("stopped").On("stop").
		State("stopped").
		To("idle").On("reset").
		Build()

	generator := visualization.NewDOTGenerator(machineDefinition)

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	for _, want := range []string{
		"digraph StateMachine",
		"\"idle\"",
		"\"running\"",
		"\"idle\" -> \"running\" [style=solid label=\"start\"]",
		"lightgreen",
	} {
		if !strings.Contains(dotContent, want) {
			t.Errorf("DOT content should contain %s", want)
		}
	}

	t.Logf("Generated DOT content:\n%s", dotContent)
}

func TestDOTGeneration_SignalMachine(t *testing.T) {
	def := signal.Definition(signal.DefaultThresholds())
	opts := visualization.DefaultDOTOptions()
	opts.Highlight = string(signal.PhaseActive)

	dotContent, err := visualization.NewDOTGenerator(def, opts).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "\"idle\" -> \"active\" [style=solid label=\"proximity [guard]\"]") {
		t.Error("guarded proximity edge missing")
	}
	if !strings.Contains(dotContent, "\"cleared\" [shape=doublecircle") {
		t.Error("cleared should render as final")
	}
	if !strings.Contains(dotContent, "penwidth=3") {
		t.Error("highlighted state missing")
	}
	if strings.Contains(dotContent, "\"cleared\" ->") {
		t.Error("nothing leaves cleared")
	}

	// edges follow declaration order
	idle := strings.Index(dotContent, "\"idle\" -> \"active\"")
	active := strings.Index(dotContent, "\"active\" -> \"cleared\"")
	if idle < 0 || active < 0 || idle > active {
		t.Errorf("unexpected edge order:\n%s", dotContent)
	}

	again, _ := visualization.NewDOTGenerator(def, opts).Generate()
	if again != dotContent {
		t.Error("output must be stable")
	}
}

func TestDOTGeneration_Compact(t *testing.T) {
	def := signal.Definition(signal.DefaultThresholds())
	opts := visualization.DOTOptions{RankDirection: "TB", NodeShape: "ellipse", TransitionStyle: "dashed"}

	dotContent, err := visualization.NewDOTGenerator(def, opts).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}
	if strings.Contains(dotContent, "label=\"proximity") {
		t.Error("events should be hidden")
	}
	if !strings.Contains(dotContent, "rankdir=TB") || !strings.Contains(dotContent, "style=dashed") {
		t.Errorf("options not applied:\n%s", dotContent)
	}
}

func TestDOTGeneration_NilDefinition(t *testing.T) {
	_, err := visualization.NewDOTGenerator(nil).Generate()
	if !greenwave.IsConfigurationError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestGenerateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signal.dot")
	generator := visualization.NewDOTGenerator(signal.Definition(signal.DefaultThresholds()))

	if err := generator.GenerateToFile(path); err != nil {
		t.Fatalf("GenerateToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph StateMachine {") {
		t.Errorf("unexpected file content: %s", data)
	}
}

func TestSVGGeneration(t *testing.T) {
	if _, err := exec.LookPath("dot"); err != nil {
		t.Skip("graphviz not installed")
	}

	svg, err := visualization.NewSVGGenerator(signal.Definition(signal.DefaultThresholds())).Generate()
	if err != nil {
		t.Fatalf("Failed to generate SVG: %v", err)
	}
	if !strings.Contains(svg, "<svg") {
		t.Error("output should be SVG")
	}
}
