// Package extract turns a free-form standup update into Completed, In
// Progress and Support sections. A generated strategy is tried first when
// requested; the deterministic rule-based strategy is always available and
// takes over on any generation or quality failure.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"updatestracker/internal/domain"
	"updatestracker/internal/taxonomy"
)

// DefaultGenerationTimeout bounds a single generation call.
const DefaultGenerationTimeout = 90 * time.Second

// Fallback reasons that are not failures.
const (
	ReasonDisabled    = "disabled"
	ReasonNoGenerator = "no_generator"
)

// Generator produces text for a prompt. Implementations must honour ctx.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// TaxonomySource yields the current taxonomy snapshot.
type TaxonomySource interface {
	Current() *taxonomy.Taxonomy
}

// Recorder receives one observation per extraction.
type Recorder interface {
	ObserveExtraction(method domain.Method, fallbackReason string, generation time.Duration)
}

type Options struct {
	Generator    Generator
	Taxonomy     TaxonomySource
	Quality      QualityGate
	Timeout      time.Duration
	DefaultModel string
	Logger       *zap.Logger
	Recorder     Recorder
}

type Extractor struct {
	gen          Generator
	taxonomy     TaxonomySource
	quality      QualityGate
	timeout      time.Duration
	defaultModel string
	logger       *zap.Logger
	recorder     Recorder
}

func New(opts Options) *Extractor {
	e := &Extractor{
		gen:          opts.Generator,
		taxonomy:     opts.Taxonomy,
		quality:      opts.Quality,
		timeout:      opts.Timeout,
		defaultModel: opts.DefaultModel,
		logger:       opts.Logger,
		recorder:     opts.Recorder,
	}
	if e.taxonomy == nil {
		e.taxonomy = taxonomy.NewStore(nil)
	}
	if e.timeout <= 0 {
		e.timeout = DefaultGenerationTimeout
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// HasGenerator reports whether a generated strategy is configured.
func (e *Extractor) HasGenerator() bool { return e.gen != nil }

// Taxonomy returns the snapshot currently in use.
func (e *Extractor) Taxonomy() *taxonomy.Taxonomy { return e.taxonomy.Current() }

// Extract structures input. The only error it returns is
// domain.ErrInvalidInput; every generation failure degrades to the
// rule-based result with FallbackReason set.
func (e *Extractor) Extract(ctx context.Context, input domain.RawInput, model string, preferGenerated bool) (domain.ExtractionResult, error) {
	if input.Empty() {
		return domain.ExtractionResult{}, domain.ErrInvalidInput
	}
	if model == "" {
		model = e.defaultModel
	}
	raw := input.Text()
	tax := e.taxonomy.Current()
	ruleBased := NewClassifier(tax).RuleBased(raw)

	reason := ReasonDisabled
	var rawGenerated string
	var took time.Duration
	if preferGenerated {
		if e.gen == nil {
			reason = ReasonNoGenerator
		} else {
			start := time.Now()
			sections, text, err := e.generate(ctx, tax, raw, model, ruleBased)
			took = time.Since(start)
			rawGenerated = text
			if err == nil {
				e.logger.Info("extract generated",
					zap.String("model", model),
					zap.Duration("took", took),
				)
				e.observe(domain.MethodGenerated, "", took)
				return domain.ExtractionResult{
					Sections:         sections,
					Method:           domain.MethodGenerated,
					Model:            model,
					RawGeneratedText: text,
				}, nil
			}
			reason = domain.FailureReason(err)
			e.logger.Warn("extract fallback",
				zap.String("model", model),
				zap.String("reason", reason),
				zap.Duration("took", took),
				zap.Error(err),
			)
		}
	}

	e.observe(domain.MethodRuleBased, reason, took)
	return domain.ExtractionResult{
		Sections:         ruleBased,
		Method:           domain.MethodRuleBased,
		RawGeneratedText: rawGenerated,
		FallbackReason:   reason,
	}, nil
}

func (e *Extractor) generate(ctx context.Context, tax *taxonomy.Taxonomy, raw, model string, ruleBased domain.ParsedSections) (domain.ParsedSections, string, error) {
	text, err := e.callGenerator(ctx, BuildPrompt(tax, raw), model)
	if err != nil {
		return domain.ParsedSections{}, "", err
	}
	sections, err := ExtractSections(text)
	if err != nil {
		return domain.ParsedSections{}, text, err
	}
	if flags := e.quality.Check(tax, sections, text, ruleBased); len(flags) > 0 {
		details := make([]string, 0, len(flags))
		for _, f := range flags {
			details = append(details, f.String())
		}
		return domain.ParsedSections{}, text, fmt.Errorf("%w: %s", domain.ErrQualityRejected, strings.Join(details, "; "))
	}
	return sections, text, nil
}

type generation struct {
	text string
	err  error
}

// callGenerator bounds the generator by the extraction timeout. When the
// deadline passes it returns at once; the generator goroutine finishes on
// its own once it observes the cancelled context.
func (e *Extractor) callGenerator(ctx context.Context, prompt, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		text, err := e.gen.Generate(ctx, prompt, model)
		done <- generation{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationTimeout, ctx.Err())
	case g := <-done:
		if g.err != nil {
			if errors.Is(g.err, context.DeadlineExceeded) && !errors.Is(g.err, domain.ErrGenerationTimeout) {
				return "", fmt.Errorf("%w: %v", domain.ErrGenerationTimeout, g.err)
			}
			return "", g.err
		}
		if strings.TrimSpace(g.text) == "" {
			return "", domain.ErrGenerationEmpty
		}
		return g.text, nil
	}
}

func (e *Extractor) observe(method domain.Method, reason string, took time.Duration) {
	if e.recorder != nil {
		e.recorder.ObserveExtraction(method, reason, took)
	}
}
