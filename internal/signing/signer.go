package signing

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
)

// Transport headers carrying the signature artifact and the timestamp
// it binds. Both must be sent; the receiver re-derives the shared
// secret from its own private key and recomputes the MAC.
const (
	HeaderSignature = "X-Request-Signature"
	HeaderTimestamp = "X-Request-Timestamp"
)

// Signing errors. Each cause implies a different remediation
// (re-authenticate, re-fetch the counterparty key, abort), so none of
// them collapse into a generic failure.
var (
	ErrMissingPrivateKey = errors.New("signing identity has no private key")
	ErrMissingPublicKey  = errors.New("counterparty public key unavailable")
	ErrEncodeMessage     = errors.New("cannot encode message to sign")
	ErrAgreement         = errors.New("cannot compute key agreement")
	ErrInvalidSignature  = errors.New("signature verification failed")
	ErrStaleTimestamp    = errors.New("signature timestamp outside freshness window")
)

// KeyFetcher retrieves a counterparty's Ed25519 public key remotely.
type KeyFetcher interface {
	FetchPublicKey(ctx context.Context, userID string) (ed25519.PublicKey, error)
}

// Signature is the header pair produced for one outbound request.
type Signature struct {
	Timestamp string
	Signature string
}

// Signer authenticates outbound API calls. The local Ed25519 identity
// key and the counterparty's public key are brought into X25519 form,
// their Diffie-Hellman shared secret keys an HMAC-SHA256 over the
// request, and the MAC is bound to the identity's user id.
type Signer struct {
	userID     string
	privateKey ed25519.PrivateKey
	fetcher    KeyFetcher
	cache      *KeyCache
}

// NewSigner creates a new Signer
func NewSigner(userID string, privateKey ed25519.PrivateKey, fetcher KeyFetcher, cache *KeyCache) *Signer {
	if cache == nil {
		cache = NewKeyCache()
	}
	return &Signer{
		userID:     userID,
		privateKey: privateKey,
		fetcher:    fetcher,
		cache:      cache,
	}
}

// Sign produces the signature header pair for a request to
// counterpartyID. body must be nil when the request carries none; an
// empty body is not appended in its place. reloadPublicKey bypasses
// the key cache and refetches the counterparty key.
func (s *Signer) Sign(ctx context.Context, counterpartyID, method, path string, body []byte, reloadPublicKey bool) (*Signature, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	return s.signAt(ctx, timestamp, counterpartyID, method, path, body, reloadPublicKey)
}

func (s *Signer) signAt(ctx context.Context, timestamp, counterpartyID, method, path string, body []byte, reloadPublicKey bool) (*Signature, error) {
	mac, err := s.computeMAC(ctx, timestamp, counterpartyID, method, path, body, reloadPublicKey)
	if err != nil {
		return nil, err
	}
	artifact := append([]byte(s.userID), mac...)
	return &Signature{
		Timestamp: timestamp,
		Signature: base64.RawURLEncoding.EncodeToString(artifact),
	}, nil
}

// Verify checks an inbound signature produced by callerID against the
// same message bytes. The timestamp must fall within maxSkew of now;
// stale signatures are rejected to stop replays.
func (s *Signer) Verify(ctx context.Context, callerID, method, path string, body []byte, timestamp, signature string, maxSkew time.Duration) error {
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	age := time.Since(time.Unix(unix, 0))
	if age > maxSkew || age < -maxSkew {
		return ErrStaleTimestamp
	}

	raw, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: bad encoding", ErrInvalidSignature)
	}
	prefix := []byte(callerID)
	if len(raw) != len(prefix)+sha256.Size || !hmac.Equal(raw[:len(prefix)], prefix) {
		return ErrInvalidSignature
	}

	expected, err := s.computeMAC(ctx, timestamp, callerID, method, path, body, false)
	if err != nil {
		return err
	}
	if !hmac.Equal(raw[len(prefix):], expected) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) computeMAC(ctx context.Context, timestamp, counterpartyID, method, path string, body []byte, reloadPublicKey bool) ([]byte, error) {
	if len(s.privateKey) != ed25519.PrivateKeySize {
		return nil, ErrMissingPrivateKey
	}
	if method == "" || path == "" {
		return nil, ErrEncodeMessage
	}

	publicKey, err := s.counterpartyKey(ctx, counterpartyID, reloadPublicKey)
	if err != nil {
		return nil, err
	}
	secret, err := sharedSecret(s.privateKey, publicKey)
	if err != nil {
		return nil, err
	}

	message := make([]byte, 0, len(timestamp)+len(method)+len(path)+len(body))
	message = append(message, timestamp...)
	message = append(message, method...)
	message = append(message, path...)
	if body != nil {
		message = append(message, body...)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return mac.Sum(nil), nil
}

func (s *Signer) counterpartyKey(ctx context.Context, counterpartyID string, reload bool) (ed25519.PublicKey, error) {
	if !reload {
		if key, ok := s.cache.Get(counterpartyID); ok {
			return key, nil
		}
	}
	if s.fetcher == nil {
		return nil, ErrMissingPublicKey
	}
	key, err := s.fetcher.FetchPublicKey(ctx, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPublicKey, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, ErrMissingPublicKey
	}
	s.cache.Put(counterpartyID, key)
	return key, nil
}

// sharedSecret derives the X25519 shared secret between an Ed25519
// private key and an Ed25519 public key. The private scalar is the
// clamped head of SHA-512(seed); the public key converts through its
// Montgomery representation.
func sharedSecret(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey) ([]byte, error) {
	digest := sha512.Sum512(privateKey.Seed())
	scalar := make([]byte, curve25519.ScalarSize)
	copy(scalar, digest[:curve25519.ScalarSize])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64

	point, err := new(edwards25519.Point).SetBytes(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgreement, err)
	}
	secret, err := curve25519.X25519(scalar, point.BytesMontgomery())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgreement, err)
	}
	return secret, nil
}
