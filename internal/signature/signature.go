// Package signature produces and checks the HMAC-SHA256 signatures carried by
// RSVP and event creation requests.
//
// The signed message is the compact JSON text of
//
//	{"eventData":<payload>,"timestamp":<ms>,"userId":"<id>"}
//
// with payload fields in declaration order and strings escaped the way
// ECMAScript JSON.stringify escapes them, so browser signers and this
// package agree byte for byte.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleTimestamp   = errors.New("signature timestamp outside allowed skew")
)

// Payload is implemented by request bodies that can be signed. Implementations
// must write the same fields in the same order every time.
type Payload interface {
	WriteCanonical(o *Object)
}

// Object appends the members of one JSON object.
type Object struct {
	buf    []byte
	fields int
}

func (o *Object) key(k string) {
	if o.fields > 0 {
		o.buf = append(o.buf, ',')
	}
	o.fields++
	o.buf = appendQuoted(o.buf, k)
	o.buf = append(o.buf, ':')
}

func (o *Object) String(key, value string) *Object {
	o.key(key)
	o.buf = appendQuoted(o.buf, value)
	return o
}

func (o *Object) Int(key string, value int64) *Object {
	o.key(key)
	o.buf = strconv.AppendInt(o.buf, value, 10)
	return o
}

func (o *Object) Bool(key string, value bool) *Object {
	o.key(key)
	o.buf = strconv.AppendBool(o.buf, value)
	return o
}

func (o *Object) Nested(key string, p Payload) *Object {
	o.key(key)
	o.buf = appendObject(o.buf, p)
	return o
}

func appendObject(b []byte, p Payload) []byte {
	inner := &Object{buf: append(b, '{')}
	p.WriteCanonical(inner)
	return append(inner.buf, '}')
}

type envelope struct {
	payload   Payload
	timestamp int64
	userID    string
}

func (e envelope) WriteCanonical(o *Object) {
	o.Nested("eventData", e.payload).
		Int("timestamp", e.timestamp).
		String("userId", e.userID)
}

// Canonicalize returns the exact bytes that are signed for a request.
func Canonicalize(payload Payload, timestamp int64, userID string) []byte {
	return appendObject(make([]byte, 0, 256), envelope{payload, timestamp, userID})
}

// Sign returns the hex-encoded HMAC-SHA256 of the canonical message.
func Sign(payload Payload, timestamp int64, userID string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(Canonicalize(payload, timestamp, userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time.
// A zero timestamp never verifies.
func Verify(sig string, payload Payload, timestamp int64, userID string, secret []byte) bool {
	if timestamp == 0 {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(Canonicalize(payload, timestamp, userID))
	return hmac.Equal(got, mac.Sum(nil))
}

// Verifier checks signatures against a shared secret and, when maxSkew is
// non-zero, rejects timestamps too far from the verifier's clock.
type Verifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

func NewVerifier(secret []byte, maxSkew time.Duration, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: secret, maxSkew: maxSkew, now: now}
}

func (v *Verifier) Check(sig string, payload Payload, timestamp int64, userID string) error {
	if !Verify(sig, payload, timestamp, userID, v.secret) {
		return ErrInvalidSignature
	}
	if v.maxSkew > 0 {
		skew := v.now().Sub(time.UnixMilli(timestamp))
		if skew < 0 {
			skew = -skew
		}
		if skew > v.maxSkew {
			return ErrStaleTimestamp
		}
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// appendQuoted follows the QuoteJSONString abstract operation of ECMAScript.
// Invalid UTF-8 is written as U+FFFD, which is what a Go JSON decoder would
// have produced from the same input.
func appendQuoted(b []byte, s string) []byte {
	b = append(b, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"', '\\':
				b = append(b, '\\', c)
			case '\b':
				b = append(b, '\\', 'b')
			case '\f':
				b = append(b, '\\', 'f')
			case '\n':
				b = append(b, '\\', 'n')
			case '\r':
				b = append(b, '\\', 'r')
			case '\t':
				b = append(b, '\\', 't')
			default:
				if c < 0x20 {
					b = append(b, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
				} else {
					b = append(b, c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b = utf8.AppendRune(b, utf8.RuneError)
		} else {
			b = append(b, s[i:i+size]...)
		}
		i += size
	}
	return append(b, '"')
}
