package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"usermanagement/models"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	_, ok := CurrentUser(ctx)
	assert.False(t, ok)
	assert.False(t, IsStaff(ctx))

	ctx = WithIdentity(ctx, &models.User{ID: 1, Username: "root", IsStaff: true})
	u, ok := CurrentUser(ctx)
	assert.True(t, ok)
	assert.Equal(t, "root", u.Username)
	assert.True(t, IsStaff(ctx))

	assert.False(t, IsStaff(WithIdentity(context.Background(), &models.User{ID: 2})))
}
