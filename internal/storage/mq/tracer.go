package mq

import (
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var tracer = otel.Tracer("internal/storage/mq")

// kTracer carries W3C trace context in record headers on produce and fetch.
var kTracer = kotel.NewTracer(kotel.TracerPropagator(propagation.TraceContext{}))
