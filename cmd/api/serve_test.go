package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/imagegen-backend/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		Env:       "test",
		JWTSecret: "secret",
		JWTIssuer: "imagegen-test",
		RateLimit: "100-M",
	}
}

func TestBuildApp(t *testing.T) {
	ctx := context.Background()

	t.Run("Should wire the in-memory store without a database", func(t *testing.T) {
		a, err := buildApp(ctx, baseConfig())
		require.NoError(t, err)
		defer a.close()

		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("Should use redis when configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := baseConfig()
		cfg.RedisURL = "redis://" + mr.Addr()

		a, err := buildApp(ctx, cfg)
		require.NoError(t, err)
		defer a.close()

		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should reject a malformed rate", func(t *testing.T) {
		cfg := baseConfig()
		cfg.RateLimit = "fast"
		_, err := buildApp(ctx, cfg)
		assert.Error(t, err)
	})

	t.Run("Should refuse to migrate without a database", func(t *testing.T) {
		assert.Error(t, runMigrate(ctx, baseConfig()))
	})
}

func TestRootCmd(t *testing.T) {
	cmd := RootCmd()
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
}
