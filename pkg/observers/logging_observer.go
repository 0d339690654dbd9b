// Package observers provides observers for monitoring signal machines
package observers

import (
	"github.com/sirupsen/logrus"

	"github.com/anggasct/greenwave"
)

// IntersectionKey is the context key signal controllers store their name under
const IntersectionKey = "intersection"

// LoggingObserver logs machine events through logrus. Transitions and
// rejections are logged at Debug, errors at Error.
type LoggingObserver struct {
	greenwave.BaseObserver
	entry *logrus.Entry
}

// NewLoggingObserver creates a logging observer writing through entry. A
// nil entry logs with the "observer" module field.
func NewLoggingObserver(entry *logrus.Entry) *LoggingObserver {
	if entry == nil {
		entry = logrus.WithField("module", "observer")
	}
	return &LoggingObserver{entry: entry}
}

func (o *LoggingObserver) with(ctx greenwave.Context) *logrus.Entry {
	if ctx == nil {
		return o.entry
	}
	if name, ok := ctx.Get(IntersectionKey); ok {
		return o.entry.WithField(IntersectionKey, name)
	}
	return o.entry
}

// OnTransition logs transitions
func (o *LoggingObserver) OnTransition(from string, to string, event greenwave.Event, ctx greenwave.Context) {
	name := "-"
	if event != nil {
		name = event.GetName()
	}
	o.with(ctx).Debugf("transition %s -> %s on %s", from, to, name)
}

// OnStateEnter logs state entry
func (o *LoggingObserver) OnStateEnter(state string, ctx greenwave.Context) {
	o.with(ctx).Tracef("entering %s", state)
}

// OnEventRejected logs rejected events
func (o *LoggingObserver) OnEventRejected(event greenwave.Event, reason string, ctx greenwave.Context) {
	o.with(ctx).Debugf("event %s rejected: %s", event.GetName(), reason)
}

// OnError logs errors
func (o *LoggingObserver) OnError(err error, ctx greenwave.Context) {
	o.with(ctx).WithError(err).Error("machine error")
}

// OnMachineStarted logs machine start
func (o *LoggingObserver) OnMachineStarted(ctx greenwave.Context) {
	o.with(ctx).Trace("machine started")
}
