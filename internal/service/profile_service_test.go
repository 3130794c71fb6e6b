package service_test

import (
	"testing"

	"github.com/riskgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileResolvePrecedence(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@riskgate.io")

	t.Run("default applies without override or mapping", func(t *testing.T) {
		user := env.createUser(t, "plain@firm.com")
		profile, err := env.profiles.Resolve(user.ID, user.Email)
		require.NoError(t, err)
		assert.Equal(t, "conservative_v2", profile.Name)
		assert.Equal(t, 0.50, profile.RiskPerTradePct)
		assert.Equal(t, 3, profile.MaxTradesPerDay)
		assert.Equal(t, 30, profile.CooldownMinutes)
	})

	t.Run("email mapping beats default", func(t *testing.T) {
		user := env.createUser(t, "vip@firm.com")
		profile, err := env.profiles.Resolve(user.ID, user.Email)
		require.NoError(t, err)
		assert.Equal(t, "relaxed_v1", profile.Name)
		assert.Equal(t, 4, profile.MaxTradesPerDay)
		assert.Equal(t, 20, profile.CooldownMinutes)
	})

	t.Run("override beats email mapping", func(t *testing.T) {
		user := env.createUser(t, "vip2@firm.com")
		_, err := env.profiles.SetOverride(admin, user.ID, "relaxed_v1")
		require.NoError(t, err)

		profile, err := env.profiles.Resolve(user.ID, "vip@firm.com")
		require.NoError(t, err)
		assert.Equal(t, "relaxed_v1", profile.Name)
	})

	t.Run("clearing the override restores fallthrough", func(t *testing.T) {
		user := env.createUser(t, "temp@firm.com")
		_, err := env.profiles.SetOverride(admin, user.ID, "relaxed_v1")
		require.NoError(t, err)

		action, err := env.profiles.SetOverride(admin, user.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "user.risk_profile.override.cleared", action)

		profile, err := env.profiles.Resolve(user.ID, user.Email)
		require.NoError(t, err)
		assert.Equal(t, "conservative_v2", profile.Name)
	})

	t.Run("clearing an absent override is a noop", func(t *testing.T) {
		user := env.createUser(t, "noop@firm.com")
		action, err := env.profiles.SetOverride(admin, user.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "user.risk_profile.override.noop", action)
	})

	t.Run("unknown profile name is rejected", func(t *testing.T) {
		user := env.createUser(t, "bad@firm.com")
		_, err := env.profiles.SetOverride(admin, user.ID, "yolo_v9")
		assert.ErrorIs(t, err, service.ErrUnknownProfile)
	})
}

func TestProfileDailyStopIsNegative(t *testing.T) {
	assert.Equal(t, -1.5, service.ProfileConservativeV2.DailyStop())
	assert.Equal(t, -2.0, service.ProfileRelaxedV1.DailyStop())
}

func TestProfileCatalog(t *testing.T) {
	env := newTestEnv(t)
	catalog := env.profiles.Catalog()
	require.Len(t, catalog, 2)
	assert.Equal(t, "conservative_v2", catalog[0].Name)
	assert.Equal(t, "relaxed_v1", catalog[1].Name)
}
