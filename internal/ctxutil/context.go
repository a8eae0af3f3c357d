// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	senderIDKey  contextKey = "ctxutil.senderID"
	pageIDKey    contextKey = "ctxutil.pageID"
	requestIDKey contextKey = "ctxutil.requestID"
	messageIDKey contextKey = "ctxutil.messageID"
)

// WithSenderID adds the page-scoped sender ID (PSID) to the context.
// The sender ID is also the recipient ID of every reply.
func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, senderIDKey, senderID)
}

// GetSenderID retrieves the sender ID from the context.
// Returns the sender ID if found, empty string otherwise.
func GetSenderID(ctx context.Context) string {
	if v := ctx.Value(senderIDKey); v != nil {
		if senderID, ok := v.(string); ok && senderID != "" {
			return senderID
		}
	}
	return ""
}

// MustGetSenderID retrieves the sender ID from the context.
// Panics if the sender ID is not found.
func MustGetSenderID(ctx context.Context) string {
	senderID, ok := ctx.Value(senderIDKey).(string)
	if !ok || senderID == "" {
		panic("ctxutil: senderID not found")
	}
	return senderID
}

// WithPageID adds the ID of the page an entry was delivered for.
func WithPageID(ctx context.Context, pageID string) context.Context {
	return context.WithValue(ctx, pageIDKey, pageID)
}

// GetPageID retrieves the page ID from the context.
func GetPageID(ctx context.Context) string {
	if v := ctx.Value(pageIDKey); v != nil {
		if pageID, ok := v.(string); ok && pageID != "" {
			return pageID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
// Request ID is generated per webhook delivery for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// WithMessageID adds the Messenger message ID (mid) to the context.
func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, messageIDKey, messageID)
}

// GetMessageID retrieves the Messenger message ID from the context.
func GetMessageID(ctx context.Context) string {
	if v := ctx.Value(messageIDKey); v != nil {
		if messageID, ok := v.(string); ok && messageID != "" {
			return messageID
		}
	}
	return ""
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// This function creates a fresh context.Background() and copies only tracing values,
// avoiding memory leaks from retaining parent context references (Go issue #64478).
//
// Use for per-entry webhook processing that continues after the delivery
// has already been acknowledged.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if senderID := GetSenderID(ctx); senderID != "" {
		newCtx = WithSenderID(newCtx, senderID)
	}
	if pageID := GetPageID(ctx); pageID != "" {
		newCtx = WithPageID(newCtx, pageID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if messageID := GetMessageID(ctx); messageID != "" {
		newCtx = WithMessageID(newCtx, messageID)
	}

	return newCtx
}
