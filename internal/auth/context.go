package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxRole
	ctxName
)

func WithIdentity(ctx context.Context, userID, role, name string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	ctx = context.WithValue(ctx, ctxName, name)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

// Actor identifies who performed a privileged action. It is passed explicitly
// into every ledger-writing call so attribution never depends on ambient state.
type Actor struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	// IP is the client address of the request, filled by the HTTP layer.
	IP string `json:"-"`
}

// Label is the human-readable attribution written into ledger descriptions.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.UserID
}

func (a Actor) Valid() bool { return a.UserID != "" && a.Role != "" }

// ActorFrom builds the Actor for the authenticated caller.
func ActorFrom(ctx context.Context) (Actor, error) {
	uid, err := UserID(ctx)
	if err != nil {
		return Actor{}, err
	}
	role, err := Role(ctx)
	if err != nil {
		return Actor{}, err
	}
	name, _ := ctx.Value(ctxName).(string)
	return Actor{UserID: uid, Role: role, Name: name}, nil
}
