package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := Start(context.Background(), "run", "run-7")
	_, load := StartChild(ctx, "load")
	load.End()
	evalCtx, eval := StartChild(ctx, "evaluate")
	_, agg := StartChild(evalCtx, "aggregate")
	agg.End()
	eval.End()
	root.End()

	require.Len(t, root.Children(), 2)
	assert.Equal(t, "load", root.Children()[0].Name)
	assert.Same(t, agg, root.Find("aggregate"))
	assert.Nil(t, root.Find("missing"))
	assert.Equal(t, "run-7", agg.RunID, "children inherit the run ID")
	assert.Same(t, root, FromContext(ctx))
}

func TestStartChild_WithoutParent(t *testing.T) {
	ctx, s := StartChild(context.Background(), "orphan")
	assert.Empty(t, s.RunID)
	assert.Same(t, s, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestEnd_Idempotent(t *testing.T) {
	_, s := Start(context.Background(), "run", "")
	s.End()
	d := s.Duration
	time.Sleep(2 * time.Millisecond)
	s.End()
	assert.Equal(t, d, s.Duration)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "run", "run-1")
	_, child := StartChild(ctx, "evaluate")
	child.SetAttr("queries", 3)
	child.End()
	root.End()
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "evaluate", entry["span"])
	assert.Equal(t, "run", entry["parent"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.EqualValues(t, 3, entry["queries"])
	assert.EqualValues(t, 1, entry["depth"])
}
