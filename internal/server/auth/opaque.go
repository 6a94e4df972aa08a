package auth

import (
	"encoding/hex"

	"github.com/promptsalchemy/tokenbank/internal/common"
)

const opaqueTokenBytes = 32

// OpaqueCodec issues random hex tokens that carry no identity at all; the
// binding lives only in the magic_links row.
type OpaqueCodec struct{}

func NewOpaqueCodec() *OpaqueCodec {
	return &OpaqueCodec{}
}

func (c *OpaqueCodec) Encode(identity string) (string, error) {
	return common.MakeRandHexString(opaqueTokenBytes)
}

func (c *OpaqueCodec) Decode(token string) (string, error) {
	if len(token) != opaqueTokenBytes*2 {
		return "", common.ErrInvalidToken
	}
	if _, err := hex.DecodeString(token); err != nil {
		return "", common.ErrInvalidToken
	}
	return "", nil
}
