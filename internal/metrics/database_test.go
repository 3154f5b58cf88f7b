package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordQueryClassifiesErrors(t *testing.T) {
	RecordQuery("op_ok", time.Now(), nil)
	RecordQuery("op_cancel", time.Now(), fmt.Errorf("list: %w", context.Canceled))
	RecordQuery("op_fail", time.Now(), errors.New("syntax error"))

	require.Equal(t, float64(0), testutil.ToFloat64(DBErrors.WithLabelValues("op_ok", "query_error")))
	require.Equal(t, float64(1), testutil.ToFloat64(DBErrors.WithLabelValues("op_cancel", "canceled")))
	require.Equal(t, float64(1), testutil.ToFloat64(DBErrors.WithLabelValues("op_fail", "query_error")))
}

func TestDBCollectorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewDBCollector(nil).Start(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestQueryTracer(t *testing.T) {
	var tracer QueryTracer
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "  DELETE FROM applicants WHERE created_at < $1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("deadlock detected")})

	require.Equal(t, float64(1), testutil.ToFloat64(DBErrors.WithLabelValues("delete", "query_error")))

	// A miss is not an error.
	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "update pages set title = $1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})
	require.Equal(t, float64(0), testutil.ToFloat64(DBErrors.WithLabelValues("update", "query_error")))

	// Without a start the end is ignored.
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{Err: errors.New("x")})
}

func TestSQLVerb(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                     "select",
		"\n\tinsert into posts VALUES": "insert",
		"WITH moved AS (...) UPDATE":   "with",
		"LISTEN river_insert":          "other",
		"":                             "other",
	}
	for sql, want := range tests {
		require.Equal(t, want, sqlVerb(sql), sql)
	}
}
