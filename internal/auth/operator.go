package auth

import (
	"context"
	"encoding/json"
	"strings"
)

// Operator identifies the person behind a request.
type Operator struct {
	Subject string
	Email   string
	Scopes  []string
}

// HasScope reports whether the operator was granted scope.
func (o Operator) HasScope(scope string) bool {
	for _, s := range o.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type operatorKey struct{}

// WithOperator returns a copy of ctx carrying op.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator stored by RequireAuth.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// tokenClaims covers both ID tokens and access tokens. Okta access tokens
// carry scopes as the "scp" array; other issuers use a space separated
// "scope" string.
type tokenClaims struct {
	Subject string          `json:"sub"`
	Email   string          `json:"email"`
	Scp     json.RawMessage `json:"scp"`
	Scope   string          `json:"scope"`
}

func (c tokenClaims) scopes() []string {
	var out []string
	if len(c.Scp) > 0 {
		var list []string
		if err := json.Unmarshal(c.Scp, &list); err == nil {
			out = append(out, list...)
		} else {
			var single string
			if err := json.Unmarshal(c.Scp, &single); err == nil {
				out = append(out, strings.Fields(single)...)
			}
		}
	}
	out = append(out, strings.Fields(c.Scope)...)
	return out
}
