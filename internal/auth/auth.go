package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

// IdentityProvider resolves bearer tokens into users.
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// StaticTokens is an IdentityProvider backed by a fixed token table.
type StaticTokens struct {
	users map[string]domain.User
}

var _ IdentityProvider = (*StaticTokens)(nil)

// ParseStaticTokens reads "token:userID:role" entries separated by commas.
func ParseStaticTokens(raw string) (*StaticTokens, error) {
	users := make(map[string]domain.User)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid token entry %q, expected token:userID:role", entry)
		}
		role := domain.Role(parts[2])
		if role != domain.RoleCustomer && role != domain.RoleAdmin {
			return nil, fmt.Errorf("invalid role %q for user %s", parts[2], parts[1])
		}
		users[parts[0]] = domain.User{ID: parts[1], Role: role}
	}
	return &StaticTokens{users: users}, nil
}

func (s *StaticTokens) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.UnauthorizedError("missing credentials")
	}
	user, ok := s.users[token]
	if !ok {
		return nil, domain.UnauthorizedError("invalid or expired token")
	}
	return &user, nil
}

type ctxKey struct{}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*domain.User)
	return user, ok && user != nil
}

// CanAccessOrder allows admins and the order's owner.
func CanAccessOrder(user *domain.User, order *domain.Order) error {
	if user == nil {
		return domain.UnauthorizedError("missing credentials")
	}
	if user.IsAdmin() || order.UserID == user.ID {
		return nil
	}
	return domain.ForbiddenError("order %s belongs to another user", order.ID.Hex())
}
