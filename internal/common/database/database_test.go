package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-assistant/internal/common/config"
	apperrors "bank-assistant/internal/common/errors"
)

func TestNewPostgres_PoolSettings(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, User: "bank", Database: "accounts",
		SSLMode: "disable", MaxConnections: 7, MaxIdle: 2,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 7, client.DB.Stats().MaxOpenConnections)
}

func TestRedis_PingAndClose(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	assert.NotNil(t, client.GetClient())
	require.NoError(t, client.Close())
}

func TestRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestElasticsearch_Ping(t *testing.T) {
	t.Run("healthy cluster", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Elastic-Product", "Elasticsearch")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
		require.NoError(t, err)
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("unhealthy cluster", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Elastic-Product", "Elasticsearch")
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
		require.NoError(t, err)

		err = client.Ping(context.Background())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeElasticsearchConnectionFailed, apperrors.Normalize(err).Code)
	})
}
