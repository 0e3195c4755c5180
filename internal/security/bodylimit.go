package security

import (
	"net/http"

	"github.com/noah-isme/cafe-cart/internal/common"
)

// BodyLimit enforces a maximum request payload size. Cart and checkout
// payloads are small JSON documents.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversized bodies with HTTP 413 and caps the
// rest with http.MaxBytesReader, so handlers see a decode error past Max.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", map[string]int64{"max": b.Max})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
