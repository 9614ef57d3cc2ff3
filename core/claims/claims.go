package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin      = "admin"
	RoleBuyer      = "buyer"
	RoleSeller     = "seller"
	RoleInfluencer = "influencer"
)

type Claims struct {
	UserID string
	Name   string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

func HasRole(ctx context.Context, roles ...string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
