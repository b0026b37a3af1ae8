// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongSession = errors.New("token belongs to another session")
)

// Seat identifies one player in one session. A token proves its holder owns the seat.
type Seat struct {
	SessionID uuid.UUID
	Player    string
}

// Signer issues and verifies seat tokens signed with ed25519.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// ttl of 0 means tokens never expire.
	ttl time.Duration
}

// NewSigner generates a fresh ed25519 key pair at runtime. Tokens do not survive a restart.
func NewSigner(ttl time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// NewSignerFromPath reads an ed25519 key pair from disk.
func NewSignerFromPath(privatePath, publicPath string, ttl time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}
	return &Signer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
	}, nil
}

// CreateToken signs a JWT with "sub" = player and "sid" = session id.
func (s *Signer) CreateToken(seat Seat) (string, error) {
	claims := jwt.MapClaims{
		"sub": seat.Player,
		"sid": seat.SessionID.String(),
		"iat": time.Now().Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = time.Now().Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Authenticate verifies a token and returns the seat it was issued for.
func (s *Signer) Authenticate(tokenString string) (Seat, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return Seat{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return Seat{}, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Seat{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	player, ok := claims["sub"].(string)
	if !ok || player == "" {
		return Seat{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	sid, ok := claims["sid"].(string)
	if !ok {
		return Seat{}, fmt.Errorf("%w: missing sid", ErrInvalidToken)
	}
	sessionID, err := uuid.Parse(sid)
	if err != nil {
		return Seat{}, fmt.Errorf("%w: bad sid: %v", ErrInvalidToken, err)
	}

	return Seat{SessionID: sessionID, Player: player}, nil
}

// AuthenticateFor verifies a token and checks that it was issued for sessionID.
func (s *Signer) AuthenticateFor(tokenString string, sessionID uuid.UUID) (Seat, error) {
	seat, err := s.Authenticate(tokenString)
	if err != nil {
		return Seat{}, err
	}
	if seat.SessionID != sessionID {
		return Seat{}, ErrWrongSession
	}
	return seat, nil
}

// ParseExpireTime reads durations like "72h"; "", "0" and "never" mean no expiry.
func ParseExpireTime(s string) (time.Duration, error) {
	switch s {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}
