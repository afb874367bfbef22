package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/fkbarrett/urldemo/internal/logs"
	"github.com/fkbarrett/urldemo/internal/metrics"
	"github.com/fkbarrett/urldemo/internal/shortener"
	"github.com/fkbarrett/urldemo/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shortnamePattern = regexp.MustCompile(`^[a-zA-Z]{8}$`)

func setUpTestServer() *httptest.Server {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(50, logs.DEBUG)
	st := store.NewMemoryStore(0, reg)
	mapper := shortener.NewMapper(st, reg)

	h := NewHandler(mapper, st, reg, logger, "")

	return httptest.NewServer(NewRouter(h))
}

func postMapping(t *testing.T, serverURL string, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(
		serverURL+"/api/url",
		"application/json",
		bytes.NewBufferString(body),
	)
	require.NoError(t, err)
	return resp
}

/* ---------------- POST /api/url ---------------- */

func TestCreateMapping(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	t.Run("GeneratedShortname", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://example.com"}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "http://example.com", res["url"])
		assert.Regexp(t, shortnamePattern, res["shortname"])
	})

	t.Run("RequestedKey", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://a.example","key":"promo"}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "promo", res["shortname"])
	})

	t.Run("RequestedKeySameURLIsIdempotent", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://a.example","key":"promo"}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("RequestedKeyConflict", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://b.example","key":"promo"}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("WithExpiration", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://example.com/ttl","expiration_min":5}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("NegativeExpiration", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://example.com/neg","expiration_min":-5}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MissingURL", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"key":"nourlhere"}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{bad-json`)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

/* ---------------- GET /{shortname} ---------------- */

func TestRedirect(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	// don't follow redirects; we want to inspect them
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Run("KnownShortname", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://example.com/target","key":"hop"}`)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err := client.Get(server.URL + "/hop")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://example.com/target", resp.Header.Get("Location"))
	})

	t.Run("UnknownShortname", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/nonexistent")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

/* ---------------- GET / ---------------- */

func TestHomepage(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

/* ---------------- GET /status ---------------- */

func TestGetStatus(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var res map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "OK", res["status"])
}

/* ---------------- GET /admin/keys ---------------- */

func TestListKeys(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	t.Run("EmptyStore", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/admin/keys")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var data map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
		assert.Len(t, data, 0)
	})

	t.Run("WithData", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://example.com","key":"listed"}`)
		resp.Body.Close()

		resp, err := http.Get(server.URL + "/admin/keys")
		require.NoError(t, err)
		defer resp.Body.Close()

		var data map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
		assert.Equal(t, "http://example.com", data["listed"])
	})
}

/* ---------------- GET /admin/logs ---------------- */

func TestRecentLogs(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	t.Run("ReturnsEntries", func(t *testing.T) {
		resp := postMapping(t, server.URL, `{"url":"http://example.com"}`)
		resp.Body.Close()

		resp, err := http.Get(server.URL + "/admin/logs")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
		assert.NotEmpty(t, entries)
	})

	t.Run("InvalidCount", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/admin/logs?n=zero")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

/* ---------------- GET /metrics ---------------- */

func TestGetMetrics(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.NotNil(t, data)
}

/* ---------------- GET /health ---------------- */

func TestGetHealth(t *testing.T) {
	server := setUpTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))

	assert.Contains(t, report, "overall_status")
	assert.Contains(t, report, "summary")
	assert.Contains(t, report, "signals")
	assert.Contains(t, report, "recommendations")
}
