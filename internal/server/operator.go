package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	auditdomain "github.com/mediflow/billing/internal/audit/domain"
	"github.com/mediflow/billing/internal/auditcontext"
	obscontext "github.com/mediflow/billing/internal/observability/context"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
)

const (
	headerOperatorID   = "X-Operator-Id"
	headerOperatorName = "X-Operator-Name"
)

// operatorMiddleware lifts the cashier identity from the request headers into
// the context so logs, audit rows, and history rows agree on who acted.
func operatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(headerOperatorName))
		id := strings.TrimSpace(c.GetHeader(headerOperatorID))

		ctx := c.Request.Context()
		if name != "" {
			ctx = obscontext.WithOperatorName(ctx, name)
		}
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeOperator), id)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// operatorFromRequest resolves the acting operator, rejecting requests whose
// operator header is present but unparsable.
func operatorFromRequest(c *gin.Context) (operatordomain.Operator, *apiError) {
	name := strings.TrimSpace(c.GetHeader(headerOperatorName))
	rawID := strings.TrimSpace(c.GetHeader(headerOperatorID))

	op := operatordomain.Operator{Name: name, Type: operatordomain.OperatorTypeUser}
	if name == "" {
		op = operatordomain.System()
	}
	if rawID != "" {
		id, err := snowflake.ParseString(rawID)
		if err != nil {
			return op, newValidationError("X-Operator-Id", "invalid_operator_id", "operator id must be a snowflake")
		}
		op.ID = &id
	}
	return op, nil
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"code": "rate_limited", "message": "too many requests"},
			})
			return
		}
		c.Next()
	}
}
