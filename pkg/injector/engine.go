package injector

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stanzabuild/stanza/pkg/envcodec"
	"github.com/stanzabuild/stanza/pkg/invocation"
	"github.com/stanzabuild/stanza/pkg/manifest"
	"github.com/stanzabuild/stanza/pkg/observability"
	"github.com/stanzabuild/stanza/pkg/plugins"
	"github.com/stanzabuild/stanza/pkg/resolve"
)

var engineTracer = otel.Tracer("stanza/injector")

// Injection outcomes used as metric labels.
const (
	OutcomeInjected = "injected"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Config controls an Engine.
type Config struct {
	// Loader loads the layered plugin configuration. Required.
	Loader *plugins.Loader

	// Resolver resolves merged plugin sets. Required.
	Resolver *resolve.Resolver

	// Metrics receives pipeline counters and histograms. Optional.
	Metrics *observability.Metrics

	// OTelMetrics receives the OTLP-exported instruments. Optional.
	OTelMetrics *observability.OTelMetrics

	Log *logrus.Logger
}

// Engine runs the injection pipeline.
type Engine struct {
	loader      *plugins.Loader
	resolver    *resolve.Resolver
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
	log         *logrus.Logger
}

// New creates an Engine.
func New(config Config) (*Engine, error) {
	if config.Loader == nil {
		return nil, fmt.Errorf("config loader is required")
	}
	if config.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	log := config.Log
	if log == nil {
		log = logrus.New()
	}

	return &Engine{
		loader:      config.Loader,
		resolver:    config.Resolver,
		metrics:     config.Metrics,
		otelMetrics: config.OTelMetrics,
		log:         log,
	}, nil
}

// Prepare runs the whole pipeline for one invocation. For ineligible
// invocations it returns a plan that leaves the manifest untouched and emits
// no environment variables. Any failure after classification aborts the pass;
// there is no partial injection.
//
// m may be nil when the invocation runs outside a package; the overlay stage
// is skipped and Plan.Manifest stays nil.
func (e *Engine) Prepare(ctx context.Context, inv invocation.Context, m *manifest.Manifest) (*Plan, error) {
	ctx, span := engineTracer.Start(ctx, "PreparePlan",
		trace.WithAttributes(
			attribute.String("tool.command", string(inv.Command)),
			attribute.String("invocation.id", inv.ID),
		),
	)
	defer span.End()

	start := time.Now()
	command := string(inv.Command)

	decision := invocation.Classify(inv)
	span.SetAttributes(attribute.Bool("plugins.eligible", decision.Eligible))

	if !decision.Eligible {
		e.log.Debugf("Skipping plugin injection: %s", decision.Reason)
		e.countInjection(command, OutcomeSkipped)
		e.recordInjection(ctx, command, false, 0, time.Since(start))
		span.SetStatus(codes.Ok, decision.Reason)

		encoding, _ := envcodec.Encode(nil)
		return &Plan{
			Invocation: inv,
			Decision:   decision,
			Manifest:   m,
			Encoding:   encoding,
			Duration:   time.Since(start),
		}, nil
	}

	layers, err := e.loadLayers(span)
	if err != nil {
		e.fail(ctx, span, command, start, err)
		return nil, err
	}

	sets, err := e.mergeLayers(span, layers)
	if err != nil {
		e.fail(ctx, span, command, start, err)
		return nil, err
	}

	snapshot, err := e.resolveSets(ctx, span, sets)
	if err != nil {
		e.fail(ctx, span, command, start, err)
		return nil, err
	}

	overlaid := e.overlayManifest(span, m, snapshot)

	encoding, err := e.encodeSnapshot(span, snapshot)
	if err != nil {
		e.fail(ctx, span, command, start, err)
		return nil, err
	}

	duration := time.Since(start)

	e.countInjection(command, OutcomeInjected)
	e.recordInjection(ctx, command, true, encoding.Len(), duration)
	if e.metrics != nil {
		e.metrics.ObserveSnapshot(snapshot.Len(), len(snapshot.Namespaces()), encoding.Len())
	}

	span.SetAttributes(
		attribute.Int("plugins.count", snapshot.Len()),
		attribute.Int("plugins.namespaces", len(snapshot.Namespaces())),
	)
	span.SetStatus(codes.Ok, "")

	e.log.Infof("Prepared %d plugin(s) across %d namespace(s) for %s", snapshot.Len(), len(snapshot.Namespaces()), inv.Command)

	return &Plan{
		Invocation: inv,
		Decision:   decision,
		Manifest:   overlaid,
		Snapshot:   snapshot,
		Encoding:   encoding,
		Duration:   duration,
	}, nil
}

func (e *Engine) loadLayers(span trace.Span) ([]plugins.ConfigLayer, error) {
	stageStart := time.Now()
	layers, err := e.loader.Load()
	e.observeStage("load", stageStart)
	if err != nil {
		return nil, fmt.Errorf("loading plugin configuration: %w", err)
	}

	for _, layer := range layers {
		if e.metrics != nil && !layer.Empty() {
			e.metrics.ConfigLayersLoaded.WithLabelValues(layer.Name).Inc()
		}
	}

	span.AddEvent("config loaded", trace.WithAttributes(attribute.Int("layers", len(layers))))
	return layers, nil
}

func (e *Engine) mergeLayers(span trace.Span, layers []plugins.ConfigLayer) (map[string]*plugins.Set, error) {
	stageStart := time.Now()
	sets, err := plugins.Merge(layers)
	e.observeStage("merge", stageStart)
	if err != nil {
		return nil, fmt.Errorf("merging plugin configuration: %w", err)
	}

	span.AddEvent("layers merged", trace.WithAttributes(
		attribute.Int("namespaces", len(sets)),
		attribute.Int("requests", plugins.TotalRequests(sets)),
	))
	return sets, nil
}

func (e *Engine) resolveSets(ctx context.Context, span trace.Span, sets map[string]*plugins.Set) (*resolve.Snapshot, error) {
	stageStart := time.Now()
	snapshot, err := e.resolver.Resolve(ctx, sets)
	e.observeStage("resolve", stageStart)
	if e.metrics != nil {
		e.metrics.ResolutionBatchDuration.Observe(time.Since(stageStart).Seconds())
	}
	if err != nil {
		return nil, err
	}

	span.AddEvent("plugins resolved", trace.WithAttributes(attribute.Int("plugins", snapshot.Len())))
	return snapshot, nil
}

func (e *Engine) overlayManifest(span trace.Span, m *manifest.Manifest, snapshot *resolve.Snapshot) *manifest.Manifest {
	if m == nil {
		return nil
	}

	stageStart := time.Now()
	overlaid := manifest.Overlay(m, snapshot.All())
	e.observeStage("overlay", stageStart)

	span.AddEvent("manifest overlaid")
	return overlaid
}

func (e *Engine) encodeSnapshot(span trace.Span, snapshot *resolve.Snapshot) (*envcodec.Encoding, error) {
	stageStart := time.Now()
	encoding, err := envcodec.Encode(snapshot)
	e.observeStage("encode", stageStart)
	if err != nil {
		return nil, fmt.Errorf("encoding plugin environment: %w", err)
	}

	span.AddEvent("environment encoded", trace.WithAttributes(attribute.Int("variables", encoding.Len())))
	return encoding, nil
}

func (e *Engine) fail(ctx context.Context, span trace.Span, command string, start time.Time, err error) {
	e.countInjection(command, OutcomeFailed)
	e.recordInjection(ctx, command, true, 0, time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.log.WithError(err).Warnf("Plugin injection failed for %s", command)
}

func (e *Engine) countInjection(command, outcome string) {
	if e.metrics != nil {
		e.metrics.InjectionsTotal.WithLabelValues(command, outcome).Inc()
	}
}

func (e *Engine) recordInjection(ctx context.Context, command string, eligible bool, envVars int, duration time.Duration) {
	if e.otelMetrics != nil {
		e.otelMetrics.RecordInjection(ctx, command, eligible, envVars, duration)
	}
}

func (e *Engine) observeStage(stage string, start time.Time) {
	if e.metrics != nil {
		e.metrics.InjectionStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
