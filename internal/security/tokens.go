package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a pairing token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// PairingClaims holds JWT claims for the pairing token minted when a device
// completes verification. The token is the verified credential handed to the
// protocol client for connect.
type PairingClaims struct {
	jwt.RegisteredClaims
	Phone   string `json:"phone"`
	Channel string `json:"channel"`
}

// PairTokenProvider issues and validates pairing JWTs using RS256 or ES256.
type PairTokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewPairTokenProvider returns a PairTokenProvider that signs with the given
// private key (RS256 or ES256). issuer and audience are set on claims and
// validated on Validate.
func NewPairTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *PairTokenProvider {
	return &PairTokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// Issue issues a pairing JWT for the verified (session, phone, channel).
// Returns the token string, its jti, and expiration time.
func (p *PairTokenProvider) Issue(sessionID, phone, channel string) (token string, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := PairingClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   sessionID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Phone:   phone,
		Channel: channel,
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", "", time.Time{}, ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	token, err = t.SignedString(p.privateKey)
	return token, jti, expiresAt, err
}

// Validate parses and validates the pairing token (signature, exp, iss, aud).
// Returns sessionID, phone, channel, or error.
func (p *PairTokenProvider) Validate(tokenString string) (sessionID, phone, channel string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &PairingClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return "", "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*PairingClaims)
	if !ok || !token.Valid {
		return "", "", "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", "", "", ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Phone, claims.Channel, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
