// Package telemetry wraps Sentry tracing for agent runs, workflow transitions and HTTP requests.
package telemetry

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

const serviceName = "tenderflow"

type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client and returns its flush function.
// Without a DSN nothing is sent and every helper here is a no-op.
func Init(cfg Config) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       serviceName,
		Debug:            cfg.Debug,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		BeforeSend:       dropExpected,
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return noop, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, release: %s, sample_rate: %.2f)",
		cfg.Environment, cfg.Release, cfg.TracesSampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// dropExpected discards events for domain errors a caller caused: validation,
// unknown IDs, version conflicts and steps refused in the current status.
func dropExpected(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.OriginalException == nil {
		return event
	}
	var domainErr *domain.DomainError
	if errors.As(hint.OriginalException, &domainErr) && domainErr.Code != domain.ErrCodeInternalError {
		return nil
	}
	return event
}

// sampler drops probe endpoints, keeps child spans with their parent and always
// samples worker-initiated agent runs, which have no HTTP parent.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		switch ctx.Span.Name {
		case "GET /health", "GET /metrics":
			return 0
		case "agent.run", "orchestrator.run":
			return 1
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes tag a span or captured error with the document it concerns.
type SpanAttributes struct {
	DocumentID string
	Agent      string
	Status     string
	Operation  string
}

func (a SpanAttributes) tags() map[string]string {
	tags := map[string]string{}
	if a.DocumentID != "" {
		tags["document_id"] = a.DocumentID
	}
	if a.Agent != "" {
		tags["agent"] = a.Agent
	}
	if a.Status != "" {
		tags["workflow_status"] = a.Status
	}
	return tags
}

// Span wraps sentry.Span; a zero Span is safe to use.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span as failed and captures err on the span's hub.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// SetOutcome records how an agent run ended. An unsuccessful envelope is not an
// exception, so nothing is captured.
func (s *Span) SetOutcome(success bool, confidence int) {
	if s.inner == nil {
		return
	}
	s.inner.SetData("confidence", confidence)
	if success {
		s.inner.Status = sentry.SpanStatusOK
	} else {
		s.inner.Status = sentry.SpanStatusFailedPrecondition
	}
}

func (s *Span) Context() context.Context {
	if s.inner != nil {
		return s.inner.Context()
	}
	return context.Background()
}

// StartSpan starts a child of the span in ctx, or a new transaction named name
// when ctx carries none (worker-initiated runs).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	for k, v := range attrs.tags() {
		span.SetTag(k, v)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err with attrs as event tags.
func CaptureError(ctx context.Context, err error, attrs SpanAttributes) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(attrs.tags())
		if attrs.Operation != "" {
			scope.SetTag("operation", attrs.Operation)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb adds a breadcrumb to the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
	} else {
		sentry.AddBreadcrumb(breadcrumb)
	}
}
