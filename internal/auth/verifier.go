package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role constants
const (
	RoleViewer     = "viewer"
	RoleController = "controller"
)

// Auth errors
var (
	ErrUnauthorized = errors.New("UNAUTHORIZED")
	ErrForbidden    = errors.New("FORBIDDEN")
)

// Claims are the verified token contents.
type Claims struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles"`
}

// VerifierConfig holds configuration for JWT verification.
type VerifierConfig struct {
	Algorithm    string // "RS256" or "HS256"
	SecretKey    string // HS256
	PublicKeyPEM string // RS256
}

// Verifier checks token signatures and claims.
type Verifier struct {
	config    VerifierConfig
	publicKey *rsa.PublicKey
}

// NewVerifier creates a new JWT verifier.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	v := &Verifier{config: config}

	switch config.Algorithm {
	case "RS256":
		if err := v.loadPublicKeyFromPEM(config.PublicKeyPEM); err != nil {
			return nil, fmt.Errorf("failed to load public key from PEM: %w", err)
		}
	case "HS256":
		if config.SecretKey == "" {
			return nil, fmt.Errorf("HS256 requires secret key")
		}
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", config.Algorithm)
	}

	return v, nil
}

// VerifyToken verifies a JWT token and returns the claims. Failures wrap
// ErrUnauthorized.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("%w: token cannot be empty", ErrUnauthorized)
	}

	token, err := jwt.Parse(tokenString, v.keyFunc,
		jwt.WithValidMethods([]string{v.config.Algorithm}),
		jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}

	out, err := extractClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return out, nil
}

func (v *Verifier) keyFunc(*jwt.Token) (interface{}, error) {
	if v.config.Algorithm == "RS256" {
		return v.publicKey, nil
	}
	return []byte(v.config.SecretKey), nil
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("missing or invalid 'sub' claim")
	}

	raw, ok := claims["roles"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("missing or invalid 'roles' claim")
	}
	roles := make([]string, 0, len(raw))
	for _, item := range raw {
		role, ok := item.(string)
		if !ok || (role != RoleViewer && role != RoleController) {
			return nil, fmt.Errorf("invalid role: %v", item)
		}
		roles = append(roles, role)
	}

	return &Claims{Subject: sub, Roles: roles}, nil
}

func (v *Verifier) loadPublicKeyFromPEM(pemData string) error {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return fmt.Errorf("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("not an RSA public key")
	}

	v.publicKey = rsaPub
	return nil
}

// HasRole reports whether claims carry any of roles. A controller holds
// every viewer privilege.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role || (role == RoleViewer && r == RoleController) {
			return true
		}
	}
	return false
}

// Authorize verifies tokenString and checks it grants role.
func (v *Verifier) Authorize(tokenString, role string) (*Claims, error) {
	claims, err := v.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.HasRole(role) {
		return nil, fmt.Errorf("%w: %s requires role %s", ErrForbidden, claims.Subject, role)
	}
	return claims, nil
}
