package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/models"
)

func TestGenerateValidate(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()

	tok, err := svc.Generate(id, "Coach Carter", models.RoleBroadcaster)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	ident := claims.Identity()
	assert.Equal(t, id, ident.UserID)
	assert.Equal(t, "Coach Carter", ident.UserName)
	assert.Equal(t, models.RoleBroadcaster, ident.Role)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	tok, err := NewJWTService("one", 1).Generate(uuid.New(), "x", models.RoleViewer)
	require.NoError(t, err)

	_, err = NewJWTService("two", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
