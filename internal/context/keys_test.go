package context_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appctx "audition-backend/internal/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestRequestStateFromContext(t *testing.T) {
	t.Run("Should return state stored in context", func(t *testing.T) {
		state := appctx.NewRequestState()
		ctx := appctx.WithRequestState(context.Background(), state)

		assert.Same(t, state, appctx.RequestStateFromContext(ctx))
		assert.Same(t, state.Correlation(), appctx.CorrelationFromContext(ctx))
	})

	t.Run("Should return nil when no state in context", func(t *testing.T) {
		assert.Nil(t, appctx.RequestStateFromContext(context.Background()))
		assert.Nil(t, appctx.CorrelationFromContext(context.Background()))
	})
}

func TestRequestState_TakeSpan(t *testing.T) {
	state := appctx.NewRequestState()

	span, activation := state.TakeSpan()
	assert.Nil(t, span)
	assert.Nil(t, activation)

	_, stored := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "op")
	state.SetSpan(stored, context.Background(), appctx.TraceContext{TraceID: "t", SpanID: "s"})

	span, activation = state.TakeSpan()
	require.NotNil(t, span)
	assert.NotNil(t, activation)
	assert.Equal(t, "t", state.TraceContext().TraceID)

	span, _ = state.TakeSpan()
	assert.Nil(t, span, "span must only be handed out once")
}

func TestRequestState_TakeTiming(t *testing.T) {
	state := appctx.NewRequestState()
	assert.Nil(t, state.TakeTiming())

	state.SetTiming(&appctx.TimingSample{StartedAt: time.Now()})
	assert.NotNil(t, state.TakeTiming())
	assert.Nil(t, state.TakeTiming(), "sample must be consumed exactly once")
}

func TestRequestState_RecordError(t *testing.T) {
	state := appctx.NewRequestState()
	first := errors.New("first")

	state.RecordError(nil)
	assert.NoError(t, state.Err())

	state.RecordError(first)
	state.RecordError(errors.New("second"))
	assert.Same(t, first, state.Err())
}

func TestTraceContext_Continued(t *testing.T) {
	assert.False(t, appctx.TraceContext{TraceID: "a", SpanID: "b"}.Continued())
	assert.True(t, appctx.TraceContext{ParentTraceID: "a", ParentSpanID: "b"}.Continued())
}

func TestCorrelation(t *testing.T) {
	c := &appctx.Correlation{}
	assert.Empty(t, c.Entries())

	c.Put("trace", "span")
	traceID, spanID := c.Get()
	assert.Equal(t, "trace", traceID)
	assert.Equal(t, "span", spanID)
	assert.Equal(t, map[string]string{"trace_id": "trace", "span_id": "span"}, c.Entries())

	c.Clear()
	assert.Empty(t, c.Entries())
}

func TestCorrelation_IsolatedPerRequest(t *testing.T) {
	var wg sync.WaitGroup
	states := make([]*appctx.RequestState, 50)

	for i := range states {
		states[i] = appctx.NewRequestState()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			states[i].Correlation().Put(id, id)
		}(i)
	}
	wg.Wait()

	for i, state := range states {
		id := string(rune('a' + i%26))
		traceID, _ := state.Correlation().Get()
		assert.Equal(t, id, traceID)
	}
}
