package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestStartSpan_RecordsOutcome(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	o := &Observability{tracerProvider: tp, tracer: tp.Tracer("test")}

	_, end := o.StartSpan(context.Background(), "engine.compute_match", attribute.String("startup_id", "s-1"))
	end(nil)
	_, end = o.StartSpan(context.Background(), "engine.recompute")
	end(errors.New("postgres down"))

	spans := recorder.Ended()
	assert.Len(t, spans, 2)
	assert.Equal(t, "engine.compute_match", spans[0].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}

func TestStartSpan_NilSafe(t *testing.T) {
	var o *Observability
	ctx, end := o.StartSpan(context.Background(), "noop")
	assert.NotNil(t, ctx)
	end(nil)

	n := NewNoop()
	_, end = n.StartSpan(context.Background(), "noop")
	end(errors.New("ignored"))
}

func TestNew_TracingIsOptIn(t *testing.T) {
	o, err := New(context.Background(), "matching-test", "")
	require.NoError(t, err)
	defer o.Shutdown(context.Background())

	assert.Nil(t, o.tracerProvider)
	assert.NotNil(t, o.meterProvider)

	ctx, end := o.StartSpan(context.Background(), "engine.compute_match")
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid(), "no spans are built without an endpoint")
	end(nil)
}

func TestSetupTracing_ExportsToCollector(t *testing.T) {
	var exported int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/traces", r.URL.Path)
		atomic.AddInt32(&exported, 1)
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	o := &Observability{}
	require.NoError(t, o.setupTracing(context.Background(), "matching-test", collector.URL+"/v1/traces"))

	ctx, end := o.StartSpan(context.Background(), "engine.recompute")
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	end(nil)

	o.Shutdown(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&exported))
}
