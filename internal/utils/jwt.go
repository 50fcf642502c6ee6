package utils // package utils provides helpers for session token creation and hashing

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

    "github.com/gatewise/checkin-engine/internal/model"
)

// SessionToken represents a signed HS256 JWT carrying a device session.
// The Token field contains the serialized JWT; Exp stores the session
// expiry.  The token is self-contained: every claim needed to rebuild the
// DeviceSession rides inside it, so validation calls need no DB lookup.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken signs a JWT for the given device session.  Claims:
// jti (session id), sub (device id), operator, event, caps (comma
// separated capability names), exp and iat.
func NewSessionToken(secret string, sess *model.DeviceSession) (SessionToken, error) {
    claims := jwt.MapClaims{
        "jti":      sess.ID,
        "sub":      sess.DeviceID,
        "operator": sess.OperatorID,
        "event":    sess.EventID,
        "caps":     strings.Join(sess.Capabilities, ","),
        "exp":      sess.ExpiresAt.Unix(),
        "iat":      sess.IssuedAt.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: sess.ExpiresAt}, nil
}

// ErrInvalidSessionToken is returned when a token fails signature or
// claim validation.
var ErrInvalidSessionToken = errors.New("invalid session token")

// ParseSessionToken verifies the signature and rebuilds the DeviceSession
// from the claims.  Expiry is intentionally not enforced here: the engine
// rejects expired sessions itself so that the live and offline paths
// share one rule, and jwt.WithoutClaimsValidation keeps the library from
// pre-empting that decision.
func ParseSessionToken(secret, raw string) (*model.DeviceSession, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidSessionToken
        }
        return []byte(secret), nil
    }, jwt.WithoutClaimsValidation())
    if err != nil || !tok.Valid {
        return nil, ErrInvalidSessionToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return nil, ErrInvalidSessionToken
    }
    sess := &model.DeviceSession{}
    if v, ok := claims["jti"].(string); ok {
        sess.ID = v
    }
    if v, ok := claims["sub"].(string); ok {
        sess.DeviceID = v
    }
    if v, ok := claims["operator"].(string); ok {
        sess.OperatorID = v
    }
    if v, ok := claims["event"].(float64); ok {
        sess.EventID = uint64(v)
    }
    if v, ok := claims["caps"].(string); ok && v != "" {
        sess.Capabilities = strings.Split(v, ",")
    }
    if v, ok := claims["exp"].(float64); ok {
        sess.ExpiresAt = time.Unix(int64(v), 0).UTC()
    }
    if v, ok := claims["iat"].(float64); ok {
        sess.IssuedAt = time.Unix(int64(v), 0).UTC()
    }
    if sess.ID == "" || sess.DeviceID == "" || sess.ExpiresAt.IsZero() {
        return nil, ErrInvalidSessionToken
    }
    return sess, nil
}
