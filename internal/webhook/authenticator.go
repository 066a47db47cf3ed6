/**
 * @description
 * This package authenticates inbound Stripe webhooks and turns the verified
 * payload into a strongly-typed domain.Event.
 *
 * Key features:
 * - Security: recomputes the v1 signature with stripe-go's webhook package and
 *   compares it in constant time with every v1 entry of the header.
 * - Replay protection: rejects timestamps outside the configured tolerance.
 * - Parsing: decodes only the event kinds the service acts on; any other kind
 *   becomes a domain.UnrecognizedEvent.
 *
 * @notes
 * - The body must be the exact bytes received on the wire. Re-serialized JSON
 *   will not verify.
 * - Header parsing and the tolerance check stay local so the clock can be
 *   injected and timestamps too far in the future are rejected as well.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v76/webhook: signature computation.
 */
package webhook

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// SignatureHeader is the header Stripe uses to sign webhook deliveries.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance matches the processor's recommended replay window.
const DefaultTolerance = 5 * time.Minute

const signingScheme = "v1"

var (
	ErrMissingSignature        = errors.New("missing signature header")
	ErrMalformedSignature      = errors.New("malformed signature header")
	ErrSignatureMismatch       = errors.New("no signature matches the payload")
	ErrTimestampOutOfTolerance = errors.New("signature timestamp outside tolerance")
	ErrMalformedEvent          = errors.New("malformed event payload")
)

// AuthenticationError is returned for any request that must be rejected
// before it reaches the event router.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return "webhook authentication failed: " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Authenticator verifies Stripe webhook signatures with a shared secret.
type Authenticator struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithTolerance sets the accepted clock distance between signing and receipt.
func WithTolerance(tolerance time.Duration) Option {
	return func(a *Authenticator) {
		if tolerance > 0 {
			a.tolerance = tolerance
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates an Authenticator for the given signing secret.
func NewAuthenticator(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret:    []byte(secret),
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate verifies the signature header against body and returns the
// decoded event.
func (a *Authenticator) Authenticate(body []byte, signatureHeader string) (domain.Event, error) {
	if err := a.Verify(body, signatureHeader); err != nil {
		return nil, err
	}
	event, err := DecodeEvent(body)
	if err != nil {
		return nil, &AuthenticationError{Err: err}
	}
	return event, nil
}

// Verify checks the signature header without decoding the payload.
func (a *Authenticator) Verify(body []byte, signatureHeader string) error {
	if len(a.secret) == 0 {
		return &AuthenticationError{Err: errors.New("signing secret is not configured")}
	}

	header := strings.TrimSpace(signatureHeader)
	if header == "" {
		return &AuthenticationError{Err: ErrMissingSignature}
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return &AuthenticationError{Err: err}
	}

	expected := ComputeSignature(timestamp, body, a.secret)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			matched = true
			break
		}
	}
	if !matched {
		return &AuthenticationError{Err: ErrSignatureMismatch}
	}

	age := a.now().Sub(timestamp)
	if age > a.tolerance || age < -a.tolerance {
		return &AuthenticationError{Err: fmt.Errorf("%w: signed %s ago", ErrTimestampOutOfTolerance, age.Round(time.Second))}
	}
	return nil
}

// ComputeSignature returns the raw HMAC-SHA256 of "<unix timestamp>.<body>".
func ComputeSignature(timestamp time.Time, body []byte, secret []byte) []byte {
	return stripewebhook.ComputeSignature(timestamp, body, string(secret))
}

// SignatureHeaderValue renders a header value for body, as the processor would.
func SignatureHeaderValue(timestamp time.Time, body []byte, secret string) string {
	sig := ComputeSignature(timestamp, body, []byte(secret))
	return fmt.Sprintf("t=%d,%s=%s", timestamp.Unix(), signingScheme, hex.EncodeToString(sig))
}

func parseSignatureHeader(header string) (time.Time, [][]byte, error) {
	var (
		timestamp    time.Time
		hasTimestamp bool
		signatures   [][]byte
	)

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return time.Time{}, nil, ErrMalformedSignature
		}
		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("%w: bad timestamp", ErrMalformedSignature)
			}
			timestamp = time.Unix(unix, 0)
			hasTimestamp = true
		case signingScheme:
			sig, err := hex.DecodeString(value)
			if err != nil {
				// Skip entries we cannot decode; another v1 may still match.
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if !hasTimestamp {
		return time.Time{}, nil, fmt.Errorf("%w: missing timestamp", ErrMalformedSignature)
	}
	if len(signatures) == 0 {
		return time.Time{}, nil, fmt.Errorf("%w: no %s signature", ErrMalformedSignature, signingScheme)
	}
	return timestamp, signatures, nil
}
