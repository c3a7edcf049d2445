package hiveauth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hiveonboard/gateway/internal/hive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSigner holds a deterministic keypair and the admin config derived
// from it, shared by every test in this file.
type testSigner struct {
	priv  *btcec.PrivateKey
	admin AdminAccount
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	priv, err := hive.DecodeActiveKey("KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn")
	require.NoError(t, err)
	return &testSigner{
		priv: priv,
		admin: AdminAccount{
			Username:  "gateway-admin",
			PublicKey: hive.EncodePublicKey(priv.PubKey()),
		},
	}
}

func (s *testSigner) sign(challenge string) string {
	digest := sha256.Sum256([]byte(challenge))
	sig := ecdsa.SignCompact(s.priv, digest[:], true)
	return base64.StdEncoding.EncodeToString(sig)
}

func runMiddleware(admin AdminAccount, headers map[string]string) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(Middleware(admin))
	router.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddlewareAcceptsValidSignature(t *testing.T) {
	signer := newTestSigner(t)
	challenge := fmt.Sprintf("%d ping", time.Now().Unix())

	w := runMiddleware(signer.admin, map[string]string{
		"account":   signer.admin.Username,
		"challenge": challenge,
		"pubkey":    signer.admin.PublicKey,
		"signature": signer.sign(challenge),
	})

	require.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRejectsMissingHeaders(t *testing.T) {
	signer := newTestSigner(t)
	w := runMiddleware(signer.admin, map[string]string{"account": signer.admin.Username})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongAccount(t *testing.T) {
	signer := newTestSigner(t)
	challenge := fmt.Sprintf("%d ping", time.Now().Unix())

	w := runMiddleware(signer.admin, map[string]string{
		"account":   "someone-else",
		"challenge": challenge,
		"pubkey":    signer.admin.PublicKey,
		"signature": signer.sign(challenge),
	})

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddlewareRejectsExpiredChallenge(t *testing.T) {
	signer := newTestSigner(t)
	challenge := fmt.Sprintf("%d ping", time.Now().Add(-48*time.Hour).Unix())

	w := runMiddleware(signer.admin, map[string]string{
		"account":   signer.admin.Username,
		"challenge": challenge,
		"pubkey":    signer.admin.PublicKey,
		"signature": signer.sign(challenge),
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsTamperedSignature(t *testing.T) {
	signer := newTestSigner(t)
	challenge := fmt.Sprintf("%d ping", time.Now().Unix())
	otherChallenge := fmt.Sprintf("%d other", time.Now().Unix())

	w := runMiddleware(signer.admin, map[string]string{
		"account":   signer.admin.Username,
		"challenge": challenge,
		"pubkey":    signer.admin.PublicKey,
		"signature": signer.sign(otherChallenge),
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
