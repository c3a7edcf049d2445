// Package hiveauth verifies the admin challenge-signature headers spec §6
// requires on every /admin/* route: account, challenge, pubkey, and
// signature, with the challenge timestamp no more than 24 hours old. Hive
// uses the same secp256k1 curve as Bitcoin/Ethereum, so verification reuses
// the curve math already pulled in for chain signing rather than adding a
// dependency; no pack or teacher file implements this Hive-specific scheme,
// so this package is built directly from the header/age rules spec.md
// names.
package hiveauth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/gin-gonic/gin"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/hive"
	"github.com/hiveonboard/gateway/internal/models"
)

const maxChallengeAge = 24 * time.Hour

// AdminAccount is the single Hive account authorised to call /admin/*
// routes; configured at startup from the admin account name and public key
// settings, which are separate from the creator account.
type AdminAccount struct {
	Username  string
	PublicKey string // STM/TST-prefixed, must match the header's declared pubkey
}

// Middleware returns a gin handler enforcing the account/challenge/pubkey/
// signature header contract. The challenge string is expected to encode a
// unix timestamp as its first whitespace-delimited field, per the "≤24h
// age" rule; everything after is free-form and is part of what gets signed.
func Middleware(admin AdminAccount) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader("account")
		challenge := c.GetHeader("challenge")
		pubkey := c.GetHeader("pubkey")
		signature := c.GetHeader("signature")

		if account == "" || challenge == "" || pubkey == "" || signature == "" {
			respondUnauthorized(c, "missing authentication headers")
			return
		}
		if account != admin.Username || pubkey != admin.PublicKey {
			respondForbidden(c, "not the configured admin account")
			return
		}
		if !models.ValidPublicKey(pubkey) {
			respondUnauthorized(c, "malformed public key")
			return
		}

		age, err := challengeAge(challenge)
		if err != nil {
			respondUnauthorized(c, "malformed challenge")
			return
		}
		if age < 0 || age > maxChallengeAge {
			respondUnauthorized(c, "challenge expired or in the future")
			return
		}

		if err := verify(pubkey, challenge, signature); err != nil {
			respondUnauthorized(c, "signature verification failed")
			return
		}

		c.Next()
	}
}

func challengeAge(challenge string) (time.Duration, error) {
	fields := strings.Fields(challenge)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty challenge")
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Since(time.Unix(ts, 0)), nil
}

// verify checks that signature is a valid compact-ECDSA recoverable
// signature over sha256(challenge), recoverable to the same 33-byte
// compressed public key encoded in pubkey's STM/TST-prefixed base58
// form. The decode/verify pair mirrors internal/hive/wire.go's
// DecodePublicKey and signDigest, since admin auth and account broadcast
// both speak the same Hive public-key encoding.
func verify(pubkey, challenge, signatureB64 string) error {
	keyBytes, err := hive.DecodePublicKey(pubkey)
	if err != nil {
		return err
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return gatewayerr.New(gatewayerr.Unauthorized, "signature is not valid base64", err)
	}
	if len(sigBytes) != 65 {
		return gatewayerr.New(gatewayerr.Unauthorized, "signature must be 65 bytes compact recoverable form", nil)
	}

	digestArr := sha256.Sum256([]byte(challenge))
	recoveredKey, _, err := ecdsa.RecoverCompact(sigBytes, digestArr[:])
	if err != nil {
		return gatewayerr.New(gatewayerr.Unauthorized, "signature recovery failed", err)
	}
	if string(recoveredKey.SerializeCompressed()) != string(keyBytes) {
		return gatewayerr.New(gatewayerr.Unauthorized, "signature does not match declared public key", nil)
	}
	return nil
}

func respondUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}

func respondForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": msg})
}
