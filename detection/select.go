package detection

import (
	"context"
	"net/http"
	"time"
)

// ProbeTimeout is the timeout Select uses when none is configured
const ProbeTimeout = 2 * time.Second

// Select returns an HTTP detector for endpoint when it answers its health
// check, and a simulated detector otherwise. An empty endpoint always
// selects the simulated detector. timeout bounds the health check and
// every later request of the returned detector; zero or less means
// ProbeTimeout.
func Select(ctx context.Context, endpoint string, timeout time.Duration) Detector {
	if endpoint == "" {
		log.Info("no detection endpoint configured, using simulated detector")
		return NewSimulatedDetector()
	}
	if timeout <= 0 {
		timeout = ProbeTimeout
	}

	remote := &HTTPDetector{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    endpoint,
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := remote.Ping(probeCtx); err != nil {
		log.WithError(err).Warnf("detection service at %s unavailable, falling back to simulated detector", endpoint)
		return NewSimulatedDetector()
	}
	log.Infof("using detection service at %s (timeout %s)", endpoint, timeout)
	return remote
}
