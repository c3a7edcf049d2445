package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiveonboard/gateway/internal/chainkind/ethereum"
)

func TestParseAssetAmount(t *testing.T) {
	amount, err := parseAssetAmount("0.329 HBD")
	require.NoError(t, err)
	assert.InDelta(t, 0.329, amount, 1e-9)

	_, err = parseAssetAmount("not-an-asset-string")
	assert.Error(t, err)
}

func TestHiveNodeMedianSourceComputesRatio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"base":"0.250 HBD","quote":"1.000 HIVE"}}`))
	}))
	defer srv.Close()

	src := newHiveNodeMedianSource([]string{srv.URL})
	price, err := src.HivePriceUSD(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.25, price, 1e-9)
}

func TestHiveNodeMedianSourceFallsThroughToNextNode(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"base":"0.300 HBD","quote":"1.000 HIVE"}}`))
	}))
	defer good.Close()

	src := newHiveNodeMedianSource([]string{bad.URL, good.URL})
	price, err := src.HivePriceUSD(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.3, price, 1e-9)
}

func TestHiveNodeMedianSourceFailsWhenAllNodesFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	src := newHiveNodeMedianSource([]string{bad.URL})
	_, err := src.HivePriceUSD(context.Background())
	assert.Error(t, err)
}

func TestEvmTransferFeeUSDConvertsWeiToDollars(t *testing.T) {
	estimator := ethereum.NewFeeEstimator(nil) // no sources, uses constant fallback
	usd := evmTransferFeeUSD(context.Background(), estimator, 3000)
	assert.Greater(t, usd, 0.0)
}
