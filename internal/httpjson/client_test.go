package httpjson

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsRawJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Symbol":"IBM"}`))
	}))
	defer srv.Close()

	client := NewClient()
	raw, err := client.Get(context.Background(), srv.URL, map[string]string{"function": "OVERVIEW"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Symbol":"IBM"}`, string(raw))
}

func TestPostJSONSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "hello", payload["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	raw, err := NewClient().PostJSON(context.Background(), srv.URL, map[string]string{"text": "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestNonSuccessStatusIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"down"}`))
	}))
	defer srv.Close()

	_, err := NewClient().Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindMalformed, pe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, pe.Status)
}

func TestNonJSONBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`Thank you for using Alpha Vantage!`))
	}))
	defer srv.Close()

	_, err := NewClient().Get(context.Background(), srv.URL, nil)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(WithTimeout(time.Second)).Get(context.Background(), url, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.False(t, IsKind(err, KindMalformed))
}

func TestProviderErrorMessages(t *testing.T) {
	assert.Contains(t, RateLimited("slow down").Error(), "rate_limited")
	assert.Contains(t, NotFound("IBM").Error(), "IBM")
	assert.Equal(t, "malformed", (&ProviderError{Kind: KindMalformed}).Error())
}

func TestRedactDropsQuery(t *testing.T) {
	assert.Equal(t, "https://example.com/v1", redact("https://example.com/v1?key=secret"))
}

func TestTransportFailureHidesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient(WithTimeout(time.Second)).Get(context.Background(), base+"/query", map[string]string{
		"function": "OVERVIEW",
		"apikey":   "SECRET-KEY-123",
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), "apikey")
	assert.Contains(t, err.Error(), base+"/query")

	_, err = NewClient(WithTimeout(time.Second)).PostJSON(context.Background(), base+"/models/m:generateContent?key=SECRET-KEY-123", map[string]string{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}
