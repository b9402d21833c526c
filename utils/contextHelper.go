package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/anggaran_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyActorKind     = appctx.ContextKeyActorKind
	ContextKeyActorRef      = appctx.ContextKeyActorRef
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

// GetActorFromContext returns the actor kind ("system"/"legacy") and its reference.
func GetActorFromContext(ctx context.Context) (kind string, ref string, ok bool) {
	kind, ok = appctx.GetString(ctx, ContextKeyActorKind)
	if !ok || kind == "" {
		return "", "", false
	}
	ref, ok = appctx.GetString(ctx, ContextKeyActorRef)
	if !ok || ref == "" {
		return "", "", false
	}
	return kind, ref, true
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetActorInContext(ctx context.Context, kind string, ref string) context.Context {
	ctx = appctx.Set(ctx, ContextKeyActorKind, kind)
	return appctx.Set(ctx, ContextKeyActorRef, ref)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
