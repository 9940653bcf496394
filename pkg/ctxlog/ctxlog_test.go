package ctxlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestCtxLog(t *testing.T) {
	t.Run("falls back to the default logger", func(t *testing.T) {
		assert.Equal(t, hclog.L(), L(context.Background()))
	})

	t.Run("carries an injected logger and its fields", func(t *testing.T) {
		var buf bytes.Buffer

		logger := hclog.New(&hclog.LoggerOptions{
			Name:   "test",
			Level:  hclog.Trace,
			Output: &buf,
		})

		ctx := With(Inject(context.Background(), logger), "method", "/svc/Call")
		ctx2 := With(ctx, "generation", 1)

		L(ctx2).Info("accepted almond")

		assert.Contains(t, buf.String(), "accepted almond")
		assert.Contains(t, buf.String(), "method=/svc/Call")
		assert.Contains(t, buf.String(), "generation=1")
	})
}
