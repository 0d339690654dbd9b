package signal

import (
	"github.com/sirupsen/logrus"

	"github.com/anggasct/greenwave"
)

// Definition builds the controller machine for the given thresholds.
//
//	idle --proximity[d < activate]--> active --pass--> cleared
//	idle --detect--> active --release--> idle
//	idle|active --settle--> cleared
//
// Nothing leaves cleared; only Controller.Reset restarts the pass.
func Definition(t Thresholds) greenwave.MachineDefinition {
	near := func(ctx greenwave.Context) bool {
		d, ok := greenwave.EventFloat(ctx)
		return ok && d < t.Activate
	}

	return greenwave.NewMachine().
		State(string(PhaseIdle)).Initial().
		To(string(PhaseActive)).On(EventProximity).When(near).
		To(string(PhaseActive)).On(EventDetect).
		To(string(PhaseCleared)).On(EventSettle).
		State(string(PhaseActive)).
		OnEntry(logPhase("gives way")).
		OnExit(logPhase("stops giving way")).
		To(string(PhaseCleared)).On(EventPass).
		To(string(PhaseCleared)).On(EventSettle).
		To(string(PhaseIdle)).On(EventRelease).
		State(string(PhaseCleared)).Final().
		OnEntry(logPhase("cleared")).
		Build()
}

// logPhase logs a phase change for the intersection stored in the
// machine context.
func logPhase(msg string) greenwave.ActionFunc {
	return func(ctx greenwave.Context) error {
		name, _ := ctx.Get("intersection")
		entry := log.WithFields(logrus.Fields{
			"intersection": name,
			"event":        ctx.GetEventName(),
		})
		if d, ok := greenwave.EventFloat(ctx); ok {
			entry = entry.WithField("distance", d)
		}
		entry.Debug(msg)
		return nil
	}
}
