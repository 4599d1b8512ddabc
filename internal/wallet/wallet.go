package wallet

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/sha3"
)

// tronAddressPrefix is the version byte of TRON mainnet base58check addresses.
const tronAddressPrefix = 0x41

// Mint generates a fresh secp256k1 keypair and returns the TRON base58check
// address together with the hex-encoded private key. Each call produces an
// independent keypair; collisions are negligible in the secp256k1 key space.
func Mint() (address string, secretHex string, err error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return "", "", err
	}
	return AddressFromKey(priv), hex.EncodeToString(priv.Serialize()), nil
}

// AddressFromKey derives the TRON address of a private key: Keccak-256 over
// the uncompressed public key (without the 0x04 tag), last 20 bytes, 0x41
// version byte, base58check.
func AddressFromKey(priv *btcec.PrivateKey) string {
	pub := priv.PubKey().SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(pub[1:])
	digest := h.Sum(nil)

	return base58.CheckEncode(digest[len(digest)-20:], tronAddressPrefix)
}

// ParseKey decodes a hex private key as produced by Mint.
func ParseKey(secretHex string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

// ValidAddress reports whether addr is a well-formed TRON mainnet address.
func ValidAddress(addr string) bool {
	payload, version, err := base58.CheckDecode(addr)
	return err == nil && version == tronAddressPrefix && len(payload) == 20
}
