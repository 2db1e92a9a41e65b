package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/passgrant/internal/app/instance"
	dto "github.com/dropDatabas3/passgrant/internal/http/dto/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okPing(context.Context) error { return nil }

func holder(err error) *instance.Holder {
	return instance.NewHolder(
		func() instance.Key { return instance.Key{Version: "v1", Fingerprint: "abc"} },
		func(_ context.Context, k instance.Key) (instance.Info, error) {
			if err != nil {
				return instance.Info{}, err
			}
			return instance.Info{Name: "passgrant", Version: k.Version, ConfigFingerprint: k.Fingerprint, StorageDriver: "memory"}, nil
		},
	)
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthController(nil).Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadyz(t *testing.T) {
	c := NewHealthController(holder(nil), Check{Name: "store", Ping: okPing}, Check{Name: "cache", Ping: okPing})
	rr := httptest.NewRecorder()
	c.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.ReadyResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Components["store"].Status)
	assert.Equal(t, "ok", resp.Components["cache"].Status)
	require.NotNil(t, resp.Instance)
	assert.Equal(t, "v1", resp.Instance.Version)
	assert.Equal(t, "abc", resp.Instance.ConfigFingerprint)
}

func TestReadyz_Unavailable(t *testing.T) {
	t.Run("dependency down", func(t *testing.T) {
		down := Check{Name: "cache", Ping: func(context.Context) error { return errors.New("connection refused") }}
		c := NewHealthController(holder(nil), Check{Name: "store", Ping: okPing}, down)
		rr := httptest.NewRecorder()
		c.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var resp dto.ReadyResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "ok", resp.Components["store"].Status)
		assert.Equal(t, dto.ComponentStatus{Status: "error", Message: "connection refused"}, resp.Components["cache"])
	})

	t.Run("instance info fails", func(t *testing.T) {
		c := NewHealthController(holder(errors.New("schema version: no table")), Check{Name: "store", Ping: okPing})
		rr := httptest.NewRecorder()
		c.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var resp dto.ReadyResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Nil(t, resp.Instance)
		assert.Equal(t, "error", resp.Components["instance"].Status)
	})
}
