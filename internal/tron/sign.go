package tron

import (
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignTxID signs a transaction ID (the sha256 of the raw transaction body)
// with the deposit key and returns the 65-byte R||S||V signature in hex, the
// format TRON expects on broadcast.
func SignTxID(priv *btcec.PrivateKey, txIDHex string) (string, error) {
	hash, err := hex.DecodeString(txIDHex)
	if err != nil {
		return "", err
	}
	if len(hash) != 32 {
		return "", errors.New("tx id must be 32 bytes")
	}

	// SignCompact prepends a 27-based recovery header; TRON wants the raw
	// recovery id as the trailing byte.
	compact := ecdsa.SignCompact(priv, hash, false)
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27
	return hex.EncodeToString(sig), nil
}
