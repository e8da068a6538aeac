// ABOUTME: Reconnect policy for transient connectivity failures
// ABOUTME: Bounded exponential backoff with jitter; never applied to auth failures

package connection

import (
	"math"
	"time"

	"github.com/cenkalti/backoff"
)

// ReconnectPolicy controls retries after TransientConnectivity failures.
// Authentication rejections and missing credentials are never retried.
type ReconnectPolicy struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsedTime of zero retries indefinitely (status stays visible).
	MaxElapsedTime time.Duration
	// MaxRetries of zero means no retry count cap.
	MaxRetries int
	Multiplier float64
	// Jitter is the randomization factor in [0, 1).
	Jitter float64
}

// DefaultReconnectPolicy returns the policy used when none is configured.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:         true,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		Jitter:          0.5,
	}
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	def := DefaultReconnectPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = def.Jitter
	}
	return p
}

// newBackOff builds the retry schedule. NextBackOff returns backoff.Stop
// (negative) once retries or elapsed time are exhausted.
func (p ReconnectPolicy) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = p.Jitter
	eb.MaxElapsedTime = p.MaxElapsedTime
	if eb.MaxElapsedTime <= 0 {
		eb.MaxElapsedTime = time.Duration(math.MaxInt64)
	}
	eb.Reset()

	if p.MaxRetries > 0 {
		return backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
	}
	return eb
}
