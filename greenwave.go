// Package greenwave provides the flat finite state machine engine behind
// the emergency corridor simulator.
//
// A machine is declared once with the fluent builder and instantiated per
// signal controller:
//
//	def := greenwave.NewMachine().
//		State("idle").Initial().
//		To("active").On("proximity").When(isNear).
//		State("active").
//		To("cleared").On("pass").
//		State("cleared").
//		Build()
//	m := def.CreateInstance()
//	_ = m.Start()
//
// Subpackages build the corridor on top of the engine: signal holds the
// per-intersection controller, sequence drives a vehicle through a list of
// controllers, rendersync hands snapshots to a renderer, detection turns
// object detector output into preemption requests and simulator ties them
// together behind a start/stop/reset surface.
package greenwave

import "time"

// Milliseconds converts an integer millisecond count, as used in
// configuration files, to a time.Duration.
func Milliseconds(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
