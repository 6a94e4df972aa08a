package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/promptsalchemy/tokenbank/internal/common"
)

// Claims carries the registered claims plus the identity the token
// authenticates. The jti (ID) claim makes every issued token string unique,
// even for the same identity in the same second.
type Claims struct {
	jwt.RegisteredClaims
	Identity string
}

// SignedCodec issues HS256 JWTs. The token's age is always judged from the
// stored created_at, so no exp claim is set here.
type SignedCodec struct {
	secret []byte
}

func NewSignedCodec(secret []byte) *SignedCodec {
	return &SignedCodec{secret: secret}
}

func (c *SignedCodec) Encode(identity string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID: uuid.NewString(),
		},
		Identity: identity,
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (c *SignedCodec) Decode(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Identity, nil
}
