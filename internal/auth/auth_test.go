package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

func TestParseStaticTokens(t *testing.T) {
	tokens, err := ParseStaticTokens("abc:user-1:customer, root:admin-1:admin")
	require.NoError(t, err)

	user, err := tokens.Authenticate(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.False(t, user.IsAdmin())

	admin, err := tokens.Authenticate(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = tokens.Authenticate(context.Background(), "nope")
	assert.True(t, domain.IsUnauthorized(err))

	_, err = tokens.Authenticate(context.Background(), "")
	assert.True(t, domain.IsUnauthorized(err))
}

func TestParseStaticTokensRejectsMalformedEntries(t *testing.T) {
	_, err := ParseStaticTokens("abc:user-1")
	assert.Error(t, err)

	_, err = ParseStaticTokens("abc:user-1:root")
	assert.Error(t, err)
}

func TestCanAccessOrder(t *testing.T) {
	order := &domain.Order{UserID: "user-1"}

	assert.NoError(t, CanAccessOrder(&domain.User{ID: "user-1", Role: domain.RoleCustomer}, order))
	assert.NoError(t, CanAccessOrder(&domain.User{ID: "admin", Role: domain.RoleAdmin}, order))
	assert.True(t, domain.IsForbidden(CanAccessOrder(&domain.User{ID: "user-2", Role: domain.RoleCustomer}, order)))
	assert.True(t, domain.IsUnauthorized(CanAccessOrder(nil, order)))
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), &domain.User{ID: "u"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", user.ID)
}
