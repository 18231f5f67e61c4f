package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionCookie is the cookie holding the session token.
const SessionCookie = "session"

var (
	ErrMissingToken   = errors.New("missing session token")
	ErrInvalidSession = errors.New("invalid or expired session")
)

// IssueSession signs an HS256 token naming the connected account.
func IssueSession(secret []byte, account common.Address, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"account": account.Hex(),
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
		"jti":     uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseSession verifies a token and returns the account it was issued for.
func ParseSession(secret []byte, tokenStr string) (common.Address, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return common.Address{}, errors.Join(ErrInvalidSession, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if account, ok := claims["account"].(string); ok && common.IsHexAddress(account) {
			return common.HexToAddress(account), nil
		}
	}
	return common.Address{}, ErrInvalidSession
}

// ExtractSessionToken reads the token from an Authorization bearer header,
// falling back to the session cookie.
func ExtractSessionToken(c echo.Context) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) || len(header) == len(prefix) {
			return "", errors.New("invalid Authorization format")
		}
		return header[len(prefix):], nil
	}
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingToken
	}
	return cookie.Value, nil
}
