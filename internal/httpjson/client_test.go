package httpjson

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	c := New()
	err := c.GetJSON(context.Background(), srv.URL, map[string]string{"X-Api-Key": "tok"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
}

func TestGetJSONMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New()
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.NotFound))
}

func TestGetJSONMapsServerErrorAsExternalUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New()
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.ExternalUnavailable))
}

func TestGetJSONMapsClientErrorAsInputValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad address"))
	}))
	defer srv.Close()

	c := New()
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.InputValidation))
}

func TestPostJSONRoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"result":"0x3b9aca00"}`))
	}))
	defer srv.Close()

	var out struct {
		Result string `json:"result"`
	}
	c := New()
	err := c.PostJSON(context.Background(), srv.URL, map[string]interface{}{"method": "eth_gasPrice"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "0x3b9aca00", out.Result)
}

func TestPostJSONMapsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New()
	err := c.PostJSON(context.Background(), srv.URL, map[string]interface{}{}, nil)
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.ExternalUnavailable))
}

func TestGetRawReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("123456"))
	}))
	defer srv.Close()

	c := New()
	body, err := c.GetRaw(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "123456", string(body))
}

func TestPostRawReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		w.Write([]byte("accepted"))
	}))
	defer srv.Close()

	c := New()
	body, err := c.PostRaw(context.Background(), srv.URL, []byte("rawtx"))
	require.NoError(t, err)
	assert.Equal(t, "accepted", string(body))
}
