// Package auditcontext carries request attribution from the HTTP layer down
// to the audit trail without threading extra parameters through every
// service call.
package auditcontext

import "context"

type ctxKey struct{}

// attribution is stored as one value so a single context lookup recovers
// everything the audit writer needs.
type attribution struct {
	actorType string
	actorID   string
	ipAddress string
	userAgent string
}

func load(ctx context.Context) attribution {
	a, _ := ctx.Value(ctxKey{}).(attribution)
	return a
}

func store(ctx context.Context, a attribution) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// WithActor records who is acting. Empty values leave the current ones in
// place.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	a := load(ctx)
	if actorType != "" {
		a.actorType = actorType
	}
	if actorID != "" {
		a.actorID = actorID
	}
	return store(ctx, a)
}

// ActorFromContext returns the recorded actor type and id, empty when the
// request carried none.
func ActorFromContext(ctx context.Context) (string, string) {
	a := load(ctx)
	return a.actorType, a.actorID
}

func WithIPAddress(ctx context.Context, ipAddress string) context.Context {
	if ipAddress == "" {
		return ctx
	}
	a := load(ctx)
	a.ipAddress = ipAddress
	return store(ctx, a)
}

func IPAddressFromContext(ctx context.Context) string {
	return load(ctx).ipAddress
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	if userAgent == "" {
		return ctx
	}
	a := load(ctx)
	a.userAgent = userAgent
	return store(ctx, a)
}

func UserAgentFromContext(ctx context.Context) string {
	return load(ctx).userAgent
}
