package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/careplus/clinic-api/internal/domain/auth"
)

type apiKeyContextKey struct{}

// APIKeyFrom returns the API key identity attached by RequireAPIKey, if any.
func APIKeyFrom(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyContextKey{}).(*auth.APIKeyInfo)
	return info, ok
}

// HashAPIKey returns the hex HMAC-SHA256 of a raw key under the server
// pepper. Only this hash is ever stored or compared, so a database leak does
// not expose usable keys.
func HashAPIKey(pepper, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey guards admin endpoints. The X-API-Key header is hashed and
// looked up; comparison is constant-time to avoid leaking hash prefixes
// through response timing.
func RequireAPIKey(keys auth.Repository, pepper string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "API key required")
				return
			}

			hash := HashAPIKey(pepper, key)
			info, err := keys.FindByHash(r.Context(), hash)
			if err != nil {
				if errors.Is(err, auth.ErrKeyNotFound) {
					writeError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				writeInternalError(w, r, errors.Wrap(err, "api key lookup"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(info.KeyHash), []byte(hash)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
