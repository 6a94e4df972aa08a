// Package auth implements the two magic-link token formats: an HMAC-signed
// JWT that embeds the identity, and an opaque random token whose identity is
// only resolvable through storage. The verification flow treats both the
// same way; the codec only settles what a token string looks like.
package auth

// TokenCodec converts between an identity and a transportable magic-link
// token string.
type TokenCodec interface {
	// Encode produces a fresh, unique token bound to identity.
	Encode(identity string) (string, error)

	// Decode checks the token's shape (and signature, when there is one) and
	// returns the identity embedded in it. Codecs whose tokens carry no
	// identity return an empty string; the caller then relies on the stored
	// row. A malformed or forged token returns an error.
	Decode(token string) (string, error)
}
