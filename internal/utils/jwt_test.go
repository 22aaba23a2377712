package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID()

	token, err := GenerateToken(userID, "anna@example.se", "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "anna@example.se", claims.Email)
	assert.Equal(t, userID.Hex(), claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(primitive.NewObjectID(), "anna@example.se", "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "another-secret")
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(primitive.NewObjectID(), "anna@example.se", "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "test-secret")
	assert.Error(t, err)
}
