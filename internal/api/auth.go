package api

import (
	"crypto/subtle"
	"net/http"

	genverr "github.com/sajjad-MoBe/genv/internal/errors"
)

// SecretHeader is the request header that must carry the shared secret
const SecretHeader = "X-Secret"

// Authorizer checks every request against the configured shared secret
type Authorizer struct {
	secret  []byte
	metrics *Metrics
}

// NewAuthorizer creates an authorizer for secret. metrics may be nil.
func NewAuthorizer(secret string, metrics *Metrics) *Authorizer {
	return &Authorizer{
		secret:  []byte(secret),
		metrics: metrics,
	}
}

// Authenticate returns an unauthorized error unless r carries the secret
func (a *Authorizer) Authenticate(r *http.Request) error {
	values, ok := r.Header[http.CanonicalHeaderKey(SecretHeader)]
	if !ok || len(values) == 0 {
		return genverr.New(genverr.ErrorTypeUnauthorized, "missing X-Secret header", nil)
	}
	if len(a.secret) == 0 || subtle.ConstantTimeCompare([]byte(values[0]), a.secret) != 1 {
		return genverr.New(genverr.ErrorTypeUnauthorized, "incorrect X-Secret header value", nil)
	}
	return nil
}

// Middleware rejects unauthenticated requests before any handler runs
func (a *Authorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := a.Authenticate(r)
		if a.metrics != nil {
			a.metrics.RecordAuthMetrics(err)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
