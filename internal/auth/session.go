// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying player tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpiry is how long a player token stays valid (0 => never).
	tokenExpiry time.Duration
)

// ErrNotInitialized is returned when tokens are used before Init.
var ErrNotInitialized = errors.New("auth: signing keys not initialized")

// PlayerClaims binds a token to one seat in one game. Subject holds the game id.
type PlayerClaims struct {
	TeamID   int `json:"team"`
	PlayerID int `json:"player"`
	jwt.RegisteredClaims
}

// GameID parses the subject back into a game id.
func (c PlayerClaims) GameID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// ParseExpiry reads a duration string such as "12h". "never", "0" and "" disable expiry.
func ParseExpiry(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("token expire time must not be negative: %s", s)
	}
	return d, nil
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init(expiry time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey = pub, priv
	tokenExpiry = expiry
	return nil
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string, expiry time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("key files are not raw ed25519 keys")
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenExpiry = expiry
	return nil
}

// CreatePlayerToken signs a token for (gameID, teamID, playerID).
func CreatePlayerToken(gameID uuid.UUID, teamID, playerID int) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialized
	}
	now := time.Now()
	claims := PlayerClaims{
		TeamID:   teamID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  gameID.String(),
			IssuedAt: jwt.NewNumericDate(now),
			ID:       strconv.FormatInt(now.UnixNano(), 36),
		},
	}
	if tokenExpiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenExpiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticatePlayerToken verifies a token string and returns its claims.
func AuthenticatePlayerToken(tokenString string) (*PlayerClaims, error) {
	if publicKey == nil {
		return nil, ErrNotInitialized
	}
	claims := &PlayerClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if _, err := claims.GameID(); err != nil {
		return nil, fmt.Errorf("missing game in jwt: %w", err)
	}
	if claims.TeamID < 1 || claims.PlayerID < 1 {
		return nil, fmt.Errorf("missing seat in jwt")
	}
	return claims, nil
}
