package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/platform/config"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

func newService(key string) *JWTService {
	return NewJWTService(config.JWTConfig{
		SigningKey: key,
		Issuer:     "docvault",
		Audience:   "docvault-api",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newService("unit-test-key")
	actor := id.ActorID(uuid.New())

	tokenString, err := svc.GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, actor.String(), claims.ActorID)
	assert.Equal(t, "docvault", claims.Issuer)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newService("unit-test-key")

	tokenString, err := svc.GenerateAccessToken(id.ActorID(uuid.New()), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateWrongKey(t *testing.T) {
	tokenString, err := newService("key-one").GenerateAccessToken(id.ActorID(uuid.New()), time.Hour)
	require.NoError(t, err)

	_, err = newService("key-two").ValidateToken(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateGarbage(t *testing.T) {
	_, err := newService("unit-test-key").ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
