// Package visualization renders machine definitions as Graphviz graphs
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/greenwave"
)

// DOTGenerator generates Graphviz DOT format representations of state machines
type DOTGenerator struct {
	machineDefinition greenwave.MachineDefinition
	options           DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowEvents          bool
	ShowGuardConditions bool
	ShowActions         bool
	RankDirection       string // "TB", "LR", "BT", "RL"
	NodeShape           string
	TransitionStyle     string
	// Highlight outlines one state, typically the current one
	Highlight string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowEvents:          true,
		ShowGuardConditions: true,
		ShowActions:         true,
		RankDirection:       "LR",
		NodeShape:           "box",
		TransitionStyle:     "solid",
	}
}

// NewDOTGenerator creates a new DOT generator for the given machine definition
func NewDOTGenerator(machineDefinition greenwave.MachineDefinition, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		machineDefinition: machineDefinition,
		options:           opts,
	}
}

// Generate creates a DOT representation of the state machine. States and
// edges appear in declaration order, so the output is stable.
func (g *DOTGenerator) Generate() (string, error) {
	if g.machineDefinition == nil {
		return "", greenwave.NewConfigurationError("visualization", "no machine definition")
	}

	var dot strings.Builder

	dot.WriteString("digraph StateMachine {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	if err := g.generateStates(&dot); err != nil {
		return "", fmt.Errorf("failed to generate states: %w", err)
	}
	dot.WriteString("\n")
	g.generateTransitions(&dot)

	dot.WriteString("}\n")

	return dot.String(), nil
}

// generateStates generates DOT nodes for all states
func (g *DOTGenerator) generateStates(dot *strings.Builder) error {
	states := g.machineDefinition.GetStates()
	initialState := g.machineDefinition.GetInitialState()

	dot.WriteString("  // States\n")

	for _, stateID := range g.machineDefinition.GetStateOrder() {
		state, ok := states[stateID]
		if !ok {
			return greenwave.NewStateNotFoundError(stateID)
		}
		g.generateStateNode(dot, stateID, state, stateID == initialState)
	}

	return nil
}

// generateStateNode generates a DOT node for a single state
func (g *DOTGenerator) generateStateNode(dot *strings.Builder, stateID string, state greenwave.State, isInitial bool) {
	shape := g.options.NodeShape
	fillColor := "lightblue"
	label := stateID

	if isInitial {
		fillColor = "lightgreen"
		label += "\\n(initial)"
	}
	if state.IsFinal() {
		shape = "doublecircle"
		fillColor = "lightcoral"
	}

	extra := ""
	if stateID == g.options.Highlight {
		extra = " penwidth=3"
	}

	dot.WriteString(fmt.Sprintf("  %q [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"%s];\n",
		stateID, shape, fillColor, label, extra))
}

// generateTransitions generates DOT edges for all transitions
func (g *DOTGenerator) generateTransitions(dot *strings.Builder) {
	transitions := g.machineDefinition.GetTransitions()

	dot.WriteString("  // Transitions\n")

	for _, from := range g.machineDefinition.GetStateOrder() {
		for _, t := range transitions[from] {
			dot.WriteString(fmt.Sprintf("  %q -> %q [style=%s", from, t.TargetState, g.options.TransitionStyle))
			if label := g.edgeLabel(t); label != "" {
				dot.WriteString(fmt.Sprintf(" label=%q", label))
			}
			dot.WriteString("];\n")
		}
	}
}

func (g *DOTGenerator) edgeLabel(t greenwave.Transition) string {
	var parts []string
	if g.options.ShowEvents {
		parts = append(parts, t.EventName)
	}
	if g.options.ShowGuardConditions && t.Guard != nil {
		parts = append(parts, "[guard]")
	}
	if g.options.ShowActions && t.Action != nil {
		parts = append(parts, "/ action")
	}
	return strings.Join(parts, " ")
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(machineDefinition greenwave.MachineDefinition, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(machineDefinition, options...),
	}
}

// Generate creates an SVG representation of the state machine
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the state machine
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
