package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// BodyLimit caps inbound payload size. Checkout requests and processor
// callbacks are small JSON or form bodies, so anything past the cap is junk
// or abuse and is refused with 413 before a handler sees it.
type BodyLimit struct {
	Max int64
}

// Middleware buffers at most Max bytes of the body and hands the handler a
// rewindable copy. Handlers downstream read the body themselves for
// signature hashing, so the cap has to be enforced here, ahead of them.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}

		buf, err := readCapped(r.Body, b.Max)
		if err != nil {
			if errors.Is(err, errTooLarge) {
				http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

var errTooLarge = errors.New("security: body exceeds limit")

func readCapped(body io.Reader, max int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(body, max+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if int64(len(buf)) > max {
		return nil, errTooLarge
	}
	return buf, nil
}
