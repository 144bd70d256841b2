// Package remote wraps calls to external collaborators with a per-call
// timeout, bounded exponential-backoff retries and a per-collaborator
// circuit breaker. The same decorator is applied uniformly to every
// remote-call site, parameterized only by collaborator identity.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/linnemanlabs/go-core/log"
)

// ErrCircuitOpen is returned without touching the collaborator while its
// breaker is cooling down.
var ErrCircuitOpen = errors.New("circuit open")

// Policy tunes one collaborator's decorator.
type Policy struct {
	MaxAttempts      uint          // total tries per Do, including the first
	InitialInterval  time.Duration // first backoff delay
	MaxInterval      time.Duration // backoff ceiling
	CallTimeout      time.Duration // per-attempt deadline
	BreakerThreshold int           // consecutive failed Do calls before opening
	BreakerCooldown  time.Duration // open duration before a half-open trial
}

// DefaultPolicy mirrors the retry configuration used against the board API.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		InitialInterval:  2 * time.Second,
		MaxInterval:      30 * time.Second,
		CallTimeout:      30 * time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  60 * time.Second,
	}
}

// Permanent marks err as not retryable; Do returns it after the first
// attempt. Use for 4xx-style failures where repeating cannot help.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Caller decorates one collaborator's calls.
type Caller struct {
	name     string
	policy   Policy
	breaker  *breaker
	logger   log.Logger
	onResult func(name, op string, success bool)

	// OnOpen, when non-nil, observes breaker open transitions. Set it
	// before the caller is shared across goroutines.
	OnOpen func(name string)
}

// NewCaller creates a decorator for the named collaborator. onResult, when
// non-nil, observes the final outcome of every Do (for metrics).
func NewCaller(name string, policy Policy, logger log.Logger, onResult func(name, op string, success bool)) *Caller {
	if logger == nil {
		logger = log.Nop()
	}
	return &Caller{
		name:     name,
		policy:   policy,
		breaker:  newBreaker(policy.BreakerThreshold, policy.BreakerCooldown),
		logger:   logger.With("collaborator", name),
		onResult: onResult,
	}
}

// Do runs fn under the caller's retry and breaker policy. fn must be
// idempotent or safely repeatable; wrap non-retryable failures with
// Permanent. A short-circuited call counts as a failure outcome but does
// not advance the breaker.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !c.breaker.allow() {
		c.logger.Warn(ctx, "short-circuiting remote call", "op", op)
		c.observe(op, false)
		return fmt.Errorf("%s %s: %w", c.name, op, ErrCircuitOpen)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialInterval
	bo.MaxInterval = c.policy.MaxInterval

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		callCtx := ctx
		if c.policy.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.policy.CallTimeout)
			defer cancel()
		}
		err := fn(callCtx)
		if err != nil && ctx.Err() != nil {
			// Caller gave up; retrying against a dead context only burns time.
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.policy.MaxAttempts),
	)
	if err != nil {
		if c.breaker.recordFailure() {
			c.logger.Warn(ctx, "circuit opened", "op", op, "cooldown", c.policy.BreakerCooldown)
			if c.OnOpen != nil {
				c.OnOpen(c.name)
			}
		}
		c.observe(op, false)
		c.logger.Error(ctx, err, "remote call failed", "op", op, "attempts", attempt)
		return fmt.Errorf("%s %s: %w", c.name, op, err)
	}

	c.breaker.recordSuccess()
	c.observe(op, true)
	return nil
}

func (c *Caller) observe(op string, success bool) {
	if c.onResult != nil {
		c.onResult(c.name, op, success)
	}
}
