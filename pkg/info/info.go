// Package info implements cluster metadata aggregation: per-node metric
// collection merged by a declarative per-metric rule (sum/average/and/or/
// first-of/unanimous), a background refresh loop, and a change listener
// registry. Grounded in src/driver/observability.go's instrument
// registration pattern and src/driver/config.go's PoolConfig/circuit-
// breaker field shapes, reusing internal/session's netpool dependency for
// the node dialing itself does.
package info

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/internal/session"
	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/kverrors"
	"github.com/kvfluent/client-go/pkg/logging"
)

const (
	instrumentationName    = "github.com/kvfluent/client-go/pkg/info"
	instrumentationVersion = "0.1.0"

	// DefaultRefreshInterval is used when New is given no behavior registry,
	// or when the resolved tendInterval is not positive.
	DefaultRefreshInterval = 1 * time.Second
)

// MetricResult is one metric's merged cluster value, or the error that
// kept it from merging (an unknown rule, a disagreeing unanimous metric, a
// type mismatch).
type MetricResult struct {
	Value interface{}
	Err   error
}

// ClusterView is a point-in-time snapshot of every collected metric's
// merged result.
type ClusterView map[string]MetricResult

// Listener is called with the new view every time a refresh changes it.
type Listener func(ClusterView)

// Info runs the background refresh loop and serves the latest merged
// cluster view.
type Info struct {
	sess     session.Session
	prober   Prober
	registry *Registry
	logger   logging.Logger

	interval time.Duration

	mu        sync.RWMutex
	view      ClusterView
	listeners map[int]Listener
	nextID    int
	breakers  map[string]*circuitBreaker

	errorWindowTicks  int
	maxErrorsInWindow int

	meter  metric.Meter
	gauges []metric.Registration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs an Info aggregator. reg supplies both the refresh
// interval and the circuit-breaker window (system.refresh/
// system.circuit_breaker settings on the DEFAULT behavior); a nil reg
// falls back to DefaultRefreshInterval and an effectively-disabled breaker
// (window of 1 tick, unlimited errors).
func New(sess session.Session, prober Prober, registry *Registry, reg *behavior.Registry, logger logging.Logger) (*Info, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	interval := DefaultRefreshInterval
	errorWindowTicks := 1
	maxErrorsInWindow := int(^uint(0) >> 1) // effectively unlimited
	if reg != nil {
		settings, err := reg.Default().Resolve(behavior.Triple{Kind: behavior.KindSystemRefresh, Shape: behavior.ShapeSystem, Mode: behavior.ModeAP})
		if err != nil {
			return nil, err
		}
		if settings.TendInterval > 0 {
			interval = settings.TendInterval
		}
		cbSettings, err := reg.Default().Resolve(behavior.Triple{Kind: behavior.KindSystemCircuitBreaker, Shape: behavior.ShapeSystem, Mode: behavior.ModeAP})
		if err != nil {
			return nil, err
		}
		if cbSettings.ErrorWindowTicks > 0 {
			errorWindowTicks = cbSettings.ErrorWindowTicks
		}
		maxErrorsInWindow = cbSettings.MaxErrorsInWindow
	}

	in := &Info{
		sess:              sess,
		prober:            prober,
		registry:          registry,
		logger:            logger,
		interval:          interval,
		view:              make(ClusterView),
		listeners:         make(map[int]Listener),
		breakers:          make(map[string]*circuitBreaker),
		errorWindowTicks:  errorWindowTicks,
		maxErrorsInWindow: maxErrorsInWindow,
		meter:             otel.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion)),
		stopCh:            make(chan struct{}),
	}
	if err := in.registerGauges(); err != nil {
		return nil, err
	}
	return in, nil
}

// Start runs one synchronous refresh (so Snapshot has data immediately)
// and launches the background refresh loop at the configured interval.
func (in *Info) Start(ctx context.Context) {
	in.refreshOnce(ctx)
	in.wg.Add(1)
	go in.loop(ctx)
}

// Stop halts the background refresh loop and unregisters its gauges.
func (in *Info) Stop() {
	close(in.stopCh)
	in.wg.Wait()
	for _, reg := range in.gauges {
		_ = reg.Unregister()
	}
}

func (in *Info) loop(ctx context.Context) {
	defer in.wg.Done()
	ticker := time.NewTicker(in.interval)
	defer ticker.Stop()
	for {
		select {
		case <-in.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.refreshOnce(ctx)
		}
	}
}

// Snapshot returns the most recently merged cluster view. Refresh failures
// (spec: "previously cached values remain visible") never clear it.
func (in *Info) Snapshot() ClusterView {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make(ClusterView, len(in.view))
	for k, v := range in.view {
		out[k] = v
	}
	return out
}

// OnChange registers a listener fired after every refresh that installs a
// new view, and returns a function to unregister it.
func (in *Info) OnChange(fn Listener) func() {
	in.mu.Lock()
	id := in.nextID
	in.nextID++
	in.listeners[id] = fn
	in.mu.Unlock()
	return func() {
		in.mu.Lock()
		delete(in.listeners, id)
		in.mu.Unlock()
	}
}

// refreshOnce enumerates cluster nodes, probes each one concurrently
// (mirroring src/driver/reactive.go's goroutine-per-stage + wg.Wait()
// fan-out), merges per-metric values from whichever nodes answered, and
// swaps in the new view. A failure to enumerate nodes at all, or zero
// nodes answering, leaves the previous view in place and only logs.
func (in *Info) refreshOnce(ctx context.Context) {
	nodes, err := in.sess.Nodes(ctx)
	if err != nil {
		in.logger.Warn("info: failed to enumerate cluster nodes", "error", err)
		return
	}
	names := in.registry.Names()
	if len(names) == 0 || len(nodes) == 0 {
		return
	}

	samples := in.probeAll(ctx, nodes, names)
	if len(samples) == 0 {
		in.logger.Warn("info: no nodes answered this refresh tick; keeping previous view")
		return
	}

	view := in.mergeSamples(names, samples)

	in.mu.Lock()
	in.view = view
	listeners := make([]Listener, 0, len(in.listeners))
	for _, fn := range in.listeners {
		listeners = append(listeners, fn)
	}
	in.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
}

func (in *Info) probeAll(ctx context.Context, nodes []kvproto.NodeInfo, names []string) []map[string]interface{} {
	type result struct {
		values  map[string]interface{}
		err     error
		skipped bool
	}
	results := make([]result, len(nodes))
	var wg sync.WaitGroup
	for i, node := range nodes {
		i, node := i, node
		if in.breakerFor(node.Address).open() {
			results[i] = result{err: kverrors.NewServerError("circuit_open", "node circuit breaker open"), skipped: true}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			values, err := in.prober.Probe(ctx, node, names)
			results[i] = result{values: values, err: err}
		}()
	}
	wg.Wait()

	samples := make([]map[string]interface{}, 0, len(nodes))
	for i, node := range nodes {
		// A skipped tick ages the window without counting as a failure.
		in.breakerFor(node.Address).record(results[i].err != nil && !results[i].skipped)
		if results[i].err != nil {
			in.logger.Warn("info: node probe failed", "node", node.Name, "error", results[i].err)
			continue
		}
		samples = append(samples, results[i].values)
	}
	return samples
}

func (in *Info) mergeSamples(names []string, samples []map[string]interface{}) ClusterView {
	view := make(ClusterView, len(names))
	for _, name := range names {
		values := make([]interface{}, 0, len(samples))
		for _, sample := range samples {
			if v, ok := sample[name]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		rule, ok := in.registry.Rule(name)
		if !ok {
			view[name] = MetricResult{Err: kverrors.NewUsageError("info: unknown metric " + name)}
			continue
		}
		merged, err := merge(rule, values)
		view[name] = MetricResult{Value: merged, Err: err}
	}
	return view
}

func (in *Info) breakerFor(addr string) *circuitBreaker {
	in.mu.Lock()
	defer in.mu.Unlock()
	b, ok := in.breakers[addr]
	if !ok {
		b = newCircuitBreaker(in.errorWindowTicks, in.maxErrorsInWindow)
		in.breakers[addr] = b
	}
	return b
}

// registerGauges exposes the merged metrics through one OTel
// ObservableGauge, observed once per metric with a kv.info.name attribute,
// mirroring src/driver/observability.go's instrument registration; on each
// callback booleans are reported as 1/0 and other non-numeric merged values
// are skipped.
func (in *Info) registerGauges() error {
	names := in.registry.Names()
	if len(names) == 0 {
		return nil
	}
	gauge, err := in.meter.Float64ObservableGauge(
		"kv.info.metric",
		metric.WithDescription("Merged cluster-wide value of a collected metric"),
	)
	if err != nil {
		return err
	}
	reg, err := in.meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		view := in.Snapshot()
		for name, result := range view {
			if result.Err != nil {
				continue
			}
			switch v := result.Value.(type) {
			case float64:
				obs.ObserveFloat64(gauge, v, metric.WithAttributes(attribute.String("kv.info.name", name)))
			case bool:
				f := 0.0
				if v {
					f = 1.0
				}
				obs.ObserveFloat64(gauge, f, metric.WithAttributes(attribute.String("kv.info.name", name)))
			}
		}
		return nil
	}, gauge)
	if err != nil {
		return err
	}
	in.gauges = append(in.gauges, reg)
	return nil
}
