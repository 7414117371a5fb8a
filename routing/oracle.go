package routing

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hybridrag/hybridrag/types"
)

// ResourceOracle answers whether a strategy can currently run. The router
// walks the fallback chain past unavailable strategies.
type ResourceOracle interface {
	Available(strategy types.Strategy) bool
}

// StaticOracle reports fixed availability. The zero value allows every
// strategy.
type StaticOracle struct {
	mu          sync.RWMutex
	unavailable map[types.Strategy]bool
}

var _ ResourceOracle = (*StaticOracle)(nil)

// NewStaticOracle creates an oracle with everything available.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{unavailable: make(map[types.Strategy]bool)}
}

// Available reports whether the strategy is enabled.
func (o *StaticOracle) Available(strategy types.Strategy) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return !o.unavailable[strategy]
}

// SetAvailable toggles a strategy.
func (o *StaticOracle) SetAvailable(strategy types.Strategy, available bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unavailable[strategy] = !available
}

// BreakerOracle tracks per-strategy health with circuit breakers and a
// shared rate limiter. A strategy is unavailable while its breaker is open
// or the limiter has no burst left.
type BreakerOracle struct {
	mu       sync.Mutex
	breakers map[types.Strategy]*gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	logger   *zap.Logger
}

var _ ResourceOracle = (*BreakerOracle)(nil)

// NewBreakerOracle creates breaker-backed availability tracking. qps <= 0
// disables rate limiting.
func NewBreakerOracle(qps float64, burst int, logger *zap.Logger) *BreakerOracle {
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}

	return &BreakerOracle{
		breakers: make(map[types.Strategy]*gobreaker.CircuitBreaker),
		limiter:  limiter,
		logger:   logger.With(zap.String("component", "resource_oracle")),
	}
}

// Available reports whether the strategy's breaker is closed and the rate
// limiter admits another execution.
func (o *BreakerOracle) Available(strategy types.Strategy) bool {
	if o.limiter != nil && !o.limiter.Allow() {
		return false
	}
	return o.breakerFor(strategy).State() != gobreaker.StateOpen
}

// Report feeds an execution outcome into the strategy's breaker.
func (o *BreakerOracle) Report(strategy types.Strategy, err error) {
	_, _ = o.breakerFor(strategy).Execute(func() (interface{}, error) {
		return nil, err
	})
}

func (o *BreakerOracle) breakerFor(strategy types.Strategy) *gobreaker.CircuitBreaker {
	o.mu.Lock()
	defer o.mu.Unlock()

	cb, ok := o.breakers[strategy]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    string(strategy),
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 5 && counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				o.logger.Warn("strategy breaker state changed",
					zap.String("strategy", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		o.breakers[strategy] = cb
	}
	return cb
}
