package exec

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/kvfluent/client-go/pkg/exec"
	instrumentationVersion = "0.1.0"
)

// instruments holds the OpenTelemetry instruments the executor records
// against, grounded in src/driver/observability.go's
// observabilityInstruments: one histogram/counter pair per call outcome,
// plus a dedicated counter for internal retry attempts and per-key events
// emitted (this package's own addition, since a single query driver call
// has no analogue of "per-key events" to count).
type instruments struct {
	tracer trace.Tracer
	meter  metric.Meter

	callDuration  metric.Float64Histogram
	callCount     metric.Int64Counter
	callErrors    metric.Int64Counter
	eventsEmitted metric.Int64Counter
	retries       metric.Int64Counter
}

func newInstruments() *instruments {
	tracer := otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
	meter := otel.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	in := &instruments{tracer: tracer, meter: meter}

	var err error
	in.callDuration, err = meter.Float64Histogram(
		"kv.exec.call.duration",
		metric.WithDescription("Duration of executor calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	in.callCount, err = meter.Int64Counter(
		"kv.exec.call.count",
		metric.WithDescription("Number of executor calls completed without error"),
	)
	if err != nil {
		otel.Handle(err)
	}
	in.callErrors, err = meter.Int64Counter(
		"kv.exec.call.errors",
		metric.WithDescription("Number of executor calls that failed"),
	)
	if err != nil {
		otel.Handle(err)
	}
	in.eventsEmitted, err = meter.Int64Counter(
		"kv.exec.events",
		metric.WithDescription("Number of per-key stream events emitted"),
	)
	if err != nil {
		otel.Handle(err)
	}
	in.retries, err = meter.Int64Counter(
		"kv.exec.retries",
		metric.WithDescription("Number of internal retry attempts issued"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return in
}

// callSpan tracks one call's span and start time, mirroring the teacher's
// spanContext.
type callSpan struct {
	span  trace.Span
	start time.Time
}

func (in *instruments) startCallSpan(ctx context.Context, op string, keyCount int) (context.Context, *callSpan) {
	ctx, span := in.tracer.Start(ctx, "kv.exec."+op,
		trace.WithAttributes(
			attribute.String("kv.op", op),
			attribute.Int("kv.key_count", keyCount),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, &callSpan{span: span, start: time.Now()}
}

func (in *instruments) finishCallSpan(sp *callSpan, op string, err error) {
	duration := time.Since(sp.start)
	opAttr := attribute.String("kv.op", op)

	in.callDuration.Record(context.Background(), duration.Seconds(), metric.WithAttributes(opAttr))
	if err != nil {
		in.callErrors.Add(context.Background(), 1, metric.WithAttributes(opAttr))
		sp.span.RecordError(err)
		sp.span.SetStatus(codes.Error, err.Error())
	} else {
		in.callCount.Add(context.Background(), 1, metric.WithAttributes(opAttr))
		sp.span.SetStatus(codes.Ok, "")
	}
	sp.span.End()
}

func (in *instruments) recordEvents(op string, n int) {
	if n <= 0 {
		return
	}
	in.eventsEmitted.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("kv.op", op)))
}

func (in *instruments) recordRetry(op string) {
	in.retries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kv.op", op)))
}
