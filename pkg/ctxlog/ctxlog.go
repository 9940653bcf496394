package ctxlog

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

type ctxLogKey struct{}

// L returns the logger carried by ctx, or the default logger.
func L(ctx context.Context) hclog.Logger {
	logger, ok := ctx.Value(ctxLogKey{}).(hclog.Logger)
	if !ok {
		return hclog.L()
	}
	return logger
}

func Inject(ctx context.Context, log hclog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogKey{}, log)
}

// With returns a context whose logger has args attached.
func With(ctx context.Context, args ...interface{}) context.Context {
	return Inject(ctx, L(ctx).With(args...))
}
