package utils

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Operators send it in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for an operator.  It takes
// the signing secret, the operator ID, an optional display name, the role
// (ADMIN or STAFF) and a TTL in minutes.  The JWT includes the subject
// (sub), role, name, expiration (exp) and issued at (iat) claims.  The
// service only verifies these tokens; issuing them is an operator task
// done through the token command.
func NewAccessToken(secret, operatorID, name, role string, ttlMin int) (AccessToken, error) {
    if secret == "" || operatorID == "" || role == "" {
        return AccessToken{}, errors.New("secret, operator id and role are required")
    }
    if ttlMin <= 0 {
        return AccessToken{}, errors.New("ttl must be positive")
    }
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  operatorID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    if name != "" {
        claims["name"] = name
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
