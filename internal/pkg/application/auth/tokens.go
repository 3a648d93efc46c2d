package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = fmt.Errorf("token has expired")
	ErrTokenMalformed = fmt.Errorf("invalid token")
	ErrTokenWrongKind = fmt.Errorf("invalid token type")
)

// Claims carries the identity embedded in an issued token.
type Claims struct {
	UserID   int
	Username string
	UserType string
}

// Tokens issues and verifies the two bearer token classes. Both kinds
// are signed HS256 with the same secret; the "type" claim is what
// keeps a refresh token from being replayed as an access token.
type Tokens struct {
	auth       *jwtauth.JWTAuth
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokens(secret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		auth:       jwtauth.New("HS256", []byte(secret), nil),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue creates a short-lived access token and a long-lived refresh
// token for the given identity. The refresh token only carries the
// user id; role and username are re-read from the store on refresh.
func (t *Tokens) Issue(userID int, username, userType string) (string, string, error) {
	accessClaims := map[string]any{
		"user_id":   userID,
		"username":  username,
		"user_type": userType,
		"type":      string(KindAccess),
	}
	jwtauth.SetIssuedNow(accessClaims)
	jwtauth.SetExpiryIn(accessClaims, t.accessTTL)

	_, accessToken, err := t.auth.Encode(accessClaims)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode access token: %w", err)
	}

	refreshClaims := map[string]any{
		"user_id": userID,
		"type":    string(KindRefresh),
	}
	jwtauth.SetIssuedNow(refreshClaims)
	jwtauth.SetExpiryIn(refreshClaims, t.refreshTTL)

	_, refreshToken, err := t.auth.Encode(refreshClaims)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Verify validates signature and expiry and checks the token kind
// discriminator. Expired and malformed are distinct errors so callers
// can produce distinct 401 semantics.
func (t *Tokens) Verify(tokenString string, kind TokenKind) (Claims, error) {
	token, err := jwtauth.VerifyToken(t.auth, tokenString)
	if err != nil {
		if errors.Is(err, jwtauth.ErrExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}

	private := token.PrivateClaims()

	tokenType, _ := private["type"].(string)
	if tokenType != string(kind) {
		return Claims{}, ErrTokenWrongKind
	}

	username, _ := private["username"].(string)
	userType, _ := private["user_type"].(string)

	return Claims{
		UserID:   intClaim(private["user_id"]),
		Username: username,
		UserType: userType,
	}, nil
}

// intClaim converts a numeric claim regardless of how the JSON layer
// decoded it.
func intClaim(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
