package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Gateway signature headers.
const (
	HeaderKey       = "X-FX-Key"
	HeaderTimestamp = "X-FX-Timestamp"
	HeaderSignature = "X-FX-Signature"
)

// RequestSigner produces HMAC-SHA256 headers for gateway requests. The
// signature covers timestamp+method+path+body and is base64 encoded.
type RequestSigner struct {
	Key    string
	Secret string
}

// Headers signs a request at the current time.
func (s *RequestSigner) Headers(method, path, body string) map[string]string {
	return s.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers with a caller-supplied Unix timestamp.
func (s *RequestSigner) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	return map[string]string{
		HeaderKey:       s.Key,
		HeaderTimestamp: ts,
		HeaderSignature: Sign([]byte(s.Secret), ts+method+path+body),
	}
}

// Verify checks a signature produced by HeadersAt in constant time.
func (s *RequestSigner) Verify(method, path, body, ts, sig string) bool {
	want := Sign([]byte(s.Secret), ts+method+path+body)
	return hmac.Equal([]byte(want), []byte(sig))
}

// Sign computes base64(HMAC-SHA256(key, message)).
func Sign(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (s *RequestSigner) String() string {
	redact := func(v string) string {
		if len(v) <= 4 {
			return "****"
		}
		return v[:4] + "****"
	}
	return fmt.Sprintf("RequestSigner{key=%s, secret=%s}", redact(s.Key), redact(s.Secret))
}
