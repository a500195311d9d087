package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"updatestracker/internal/config"
	"updatestracker/internal/domain"
	"updatestracker/internal/httpx"
)

const (
	DefaultMinGeneratedChars = 20
	defaultMaxTries          = 3
	defaultInitialBackoff    = 500 * time.Millisecond
	defaultMaxBackoff        = 8 * time.Second
)

// AttemptObserver is told about every provider call, retries included.
type AttemptObserver interface {
	ObserveAttempt(provider, outcome string)
}

type AdapterOptions struct {
	Provider          Provider
	Timeout           time.Duration
	MaxTries          int
	RequestsPerSecond float64
	MinGeneratedChars int
	InitialBackoff    time.Duration
	Logger            *zap.Logger
	Observer          AttemptObserver
}

// Adapter wraps a Provider with the overall deadline, retry policy, rate
// limit and output checks. It implements extract.Generator.
type Adapter struct {
	provider       Provider
	timeout        time.Duration
	maxTries       int
	minChars       int
	initialBackoff time.Duration
	limiter        *rate.Limiter
	logger         *zap.Logger
	observer       AttemptObserver
}

func NewAdapter(opts AdapterOptions) *Adapter {
	a := &Adapter{
		provider:       opts.Provider,
		timeout:        opts.Timeout,
		maxTries:       opts.MaxTries,
		minChars:       opts.MinGeneratedChars,
		initialBackoff: opts.InitialBackoff,
		logger:         opts.Logger,
		observer:       opts.Observer,
	}
	if a.timeout <= 0 {
		a.timeout = time.Duration(config.DefaultLLMTimeoutSeconds) * time.Second
	}
	if a.maxTries < 1 {
		a.maxTries = defaultMaxTries
	}
	if a.minChars <= 0 {
		a.minChars = DefaultMinGeneratedChars
	}
	if a.initialBackoff <= 0 {
		a.initialBackoff = defaultInitialBackoff
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	a.limiter = rate.NewLimiter(limit, 1)
	return a
}

// NewAdapterFromConfig builds the configured provider and wraps it. It
// returns nil, nil when generation is disabled.
func NewAdapterFromConfig(ctx context.Context, cfg config.Config, deps AdapterOptions) (*Adapter, error) {
	if !cfg.GenerationEnabled() {
		return nil, nil
	}
	provider, err := NewProvider(ctx, cfg, httpx.ExternalHTTPClient())
	if err != nil {
		return nil, err
	}
	deps.Provider = provider
	deps.Timeout = cfg.LLMTimeout()
	deps.MaxTries = cfg.LLMMaxRetries
	deps.RequestsPerSecond = cfg.LLMRequestsPerSecond
	deps.MinGeneratedChars = cfg.MinGeneratedChars
	return NewAdapter(deps), nil
}

func (a *Adapter) ProviderName() string { return a.provider.Name() }

// Generate returns the provider's text for prompt. Failures are reported as
// domain.ErrGenerationTimeout, domain.ErrGenerationEmpty or
// domain.ErrGenerationTransport.
func (a *Adapter) Generate(ctx context.Context, prompt, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	name := a.provider.Name()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.initialBackoff
	b.MaxInterval = defaultMaxBackoff

	text, err := backoff.Retry(ctx, func() (string, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(fmt.Errorf("%w: rate limit wait: %v", domain.ErrGenerationTimeout, err))
		}
		text, err := a.provider.Complete(ctx, prompt, model)
		if err != nil {
			a.observe(name, "error")
			if ctx.Err() != nil || !isRetryable(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		a.observe(name, "ok")
		return text, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(a.maxTries)),
		backoff.WithMaxElapsedTime(a.timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Warn("llm generate retry",
				zap.String("provider", name),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		err = a.classify(ctx, err)
		a.logger.Warn("llm generate failed",
			zap.String("provider", name),
			zap.String("model", model),
			zap.Duration("took", time.Since(started)),
			zap.Error(err))
		return "", err
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < a.minChars {
		return "", fmt.Errorf("%w: %d characters", domain.ErrGenerationEmpty, utf8.RuneCountInString(text))
	}
	a.logger.Info("llm generate",
		zap.String("provider", name),
		zap.String("model", model),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(started)))
	return text, nil
}

func (a *Adapter) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrGenerationTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %v", domain.ErrGenerationTimeout, a.timeout, err)
	case errors.Is(err, errNoContent):
		return fmt.Errorf("%w: %v", domain.ErrGenerationEmpty, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrGenerationTransport, err)
	}
}

func (a *Adapter) observe(provider, outcome string) {
	if a.observer != nil {
		a.observer.ObserveAttempt(provider, outcome)
	}
}
