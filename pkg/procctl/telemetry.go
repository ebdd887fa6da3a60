package procctl

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/srediag/shm-procctl/pkg/procctl"

// Option configures Open, OpenDir, Create and Acquire.
type Option func(*options)

type options struct {
	layout Layout
	create bool
	meter  metric.Meter
	tracer trace.Tracer
}

func defaultOptions() options {
	return options{
		layout: DefaultLayout(),
		create: true,
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
	}
}

// WithLayout sets the region layout. The default is DefaultLayout.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// WithoutCreate fails instead of creating a missing backing file.
func WithoutCreate() Option {
	return func(o *options) { o.create = false }
}

// WithMeter records slot operations on m.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithTracer traces region mapping on t.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

type instruments struct {
	tracer   trace.Tracer
	commands metric.Int64Counter
}

func newInstruments(o options) instruments {
	commands, err := o.meter.Int64Counter("procctl.commands",
		metric.WithDescription("Slot flag writes by operation."))
	if err != nil {
		logger().Warn("create otel counter", "error", err)
		commands, _ = metricnoop.NewMeterProvider().Meter(instrumentationName).Int64Counter("procctl.commands")
	}
	return instruments{tracer: o.tracer, commands: commands}
}

func (i instruments) record(op string, index int) {
	i.commands.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Int("slot", index),
	))
}
