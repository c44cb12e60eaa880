// Package log writes structured entries that carry the request id found in
// the context.
package log

import (
	"context"

	"go.uber.org/zap"

	"github.com/nguyentranbao-ct/chat-crm/pkg/logger"
)

// RequestIDKey is the context key the request-id middleware populates.
const RequestIDKey = "x-request-id"

func sugar() *zap.SugaredLogger {
	return logger.Base().WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func with(ctx context.Context, kv []any) []any {
	if ctx == nil {
		return kv
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		kv = append(kv, "request_id", id)
	}
	return kv
}

func Debugw(ctx context.Context, msg string, kv ...any) {
	sugar().Debugw(msg, with(ctx, kv)...)
}

func Infow(ctx context.Context, msg string, kv ...any) {
	sugar().Infow(msg, with(ctx, kv)...)
}

func Warnw(ctx context.Context, msg string, kv ...any) {
	sugar().Warnw(msg, with(ctx, kv)...)
}

func Errorw(ctx context.Context, msg string, kv ...any) {
	sugar().Errorw(msg, with(ctx, kv)...)
}

func Fatal(args ...any) {
	sugar().Fatal(args...)
}
