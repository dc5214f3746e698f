package utils

import (
	"context"
)

// ContextKey types the request-scoped values the HTTP layer attaches and
// the workflows read back.
type ContextKey string

func (c ContextKey) String() string { return string(c) }

const (
	ContextKeyBusinessId    ContextKey = "BusinessId"
	ContextKeyUserId        ContextKey = "UserId"
	ContextKeyUserName      ContextKey = "UserName"
	ContextKeyCorrelationId ContextKey = "CorrelationId"
)

func contextString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetBusinessIdFromContext(ctx context.Context) (string, bool) {
	return contextString(ctx, ContextKeyBusinessId)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ContextKeyUserId).(int)
	return v, ok
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return contextString(ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return contextString(ctx, ContextKeyCorrelationId)
}

func SetBusinessIdInContext(ctx context.Context, businessId string) context.Context {
	return context.WithValue(ctx, ContextKeyBusinessId, businessId)
}

func SetUserInContext(ctx context.Context, userId int, userName string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserId, userId)
	return context.WithValue(ctx, ContextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}
