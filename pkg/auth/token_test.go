package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "localkart-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	shopID := uuid.New()
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleVendor,
		ShopID: &shopID,
	}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := ParseAccessToken(cfg, signed)
	require.NoError(t, err)
	assert.Equal(t, payload.UserID, claims.UserID)
	assert.Equal(t, enums.ActorRoleVendor, claims.Role)
	require.NotNil(t, claims.ShopID)
	assert.Equal(t, shopID, *claims.ShopID)
	assert.NotEmpty(t, claims.ID)
}

func TestMintAccessToken_Validation(t *testing.T) {
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleConsumer}

	cfg := testJWTConfig()
	cfg.Secret = ""
	_, err := MintAccessToken(cfg, time.Now(), payload)
	assert.Error(t, err)

	cfg = testJWTConfig()
	cfg.ExpirationMinutes = 0
	_, err = MintAccessToken(cfg, time.Now(), payload)
	assert.Error(t, err)

	cfg = testJWTConfig()
	payload.Role = enums.ActorRole("ghost")
	_, err = MintAccessToken(cfg, time.Now(), payload)
	assert.Error(t, err)
}

func TestParseAccessToken_RejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleConsumer}

	signed, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), payload)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, signed)
	assert.Error(t, err)
}

func TestParseAccessToken_RejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleConsumer}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, signed)
	assert.Error(t, err)
}
