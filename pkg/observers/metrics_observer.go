package observers

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/anggasct/greenwave"
)

// Summary describes how long signals gave way during a run
type Summary struct {
	Activations int           `json:"activations"`
	Mean        time.Duration `json:"mean"`
	StdDev      time.Duration `json:"std_dev"`
	Min         time.Duration `json:"min"`
	Max         time.Duration `json:"max"`
}

// MetricsObserver collects visit and transition counts and the time each
// intersection spent in the watched state. One observer may be attached
// to every controller of a corridor.
type MetricsObserver struct {
	greenwave.BaseObserver

	watched          string
	now              func() time.Time
	mutex            sync.RWMutex
	stateVisits      map[string]int
	transitionCounts map[string]int
	errorCount       int
	entered          map[string]time.Time
	durations        []float64
}

// NewMetricsObserver creates a metrics observer timing the given state
func NewMetricsObserver(watched string) *MetricsObserver {
	o := &MetricsObserver{watched: watched, now: time.Now}
	o.Reset()
	return o
}

func intersection(ctx greenwave.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Get(IntersectionKey); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}

// OnStateEnter records state entry metrics
func (o *MetricsObserver) OnStateEnter(state string, ctx greenwave.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.stateVisits[state]++
	if state == o.watched {
		o.entered[intersection(ctx)] = o.now()
	}
}

// OnStateExit records the time spent in the watched state
func (o *MetricsObserver) OnStateExit(state string, ctx greenwave.Context) {
	if state != o.watched {
		return
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()

	key := intersection(ctx)
	if at, ok := o.entered[key]; ok {
		o.durations = append(o.durations, float64(o.now().Sub(at)))
		delete(o.entered, key)
	}
}

// OnTransition records transition metrics
func (o *MetricsObserver) OnTransition(from string, to string, event greenwave.Event, ctx greenwave.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.transitionCounts[from+"->"+to]++
}

// OnError records error metrics
func (o *MetricsObserver) OnError(err error, ctx greenwave.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errorCount++
}

// GetStateVisitCounts returns the number of times each state was entered
func (o *MetricsObserver) GetStateVisitCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[string]int, len(o.stateVisits))
	for state, count := range o.stateVisits {
		result[state] = count
	}
	return result
}

// GetTransitionCounts returns the number of times each transition occurred
func (o *MetricsObserver) GetTransitionCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make(map[string]int, len(o.transitionCounts))
	for transition, count := range o.transitionCounts {
		result[transition] = count
	}
	return result
}

// GetErrorCount returns the number of errors
func (o *MetricsObserver) GetErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.errorCount
}

// Summary returns statistics over completed stays in the watched state
func (o *MetricsObserver) Summary() Summary {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	s := Summary{Activations: len(o.durations)}
	if s.Activations == 0 {
		return s
	}
	mean, std := stat.MeanStdDev(o.durations, nil)
	s.Mean = time.Duration(mean)
	if s.Activations > 1 {
		s.StdDev = time.Duration(std)
	}
	s.Min = time.Duration(floats.Min(o.durations))
	s.Max = time.Duration(floats.Max(o.durations))
	return s
}

// Reset resets all metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.stateVisits = make(map[string]int)
	o.transitionCounts = make(map[string]int)
	o.errorCount = 0
	o.entered = make(map[string]time.Time)
	o.durations = nil
}
