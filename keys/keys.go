// Package keys manages the issuing wallet's secp256k1 keys on the local
// filesystem.
//
// Layout:
//
//	<dir>/<identifier>/root.key          hot issuing key, hex, mode 0600
//	<dir>/<identifier>/roles/<role>.key  derived role keys (revocation etc.)
//
// Role keys are derived deterministically from the root key so the
// revocation and change addresses of an issuer can be rebuilt from the root
// key alone.
package keys

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
)

// PrivKeySize is the length in bytes of a raw secp256k1 private key.
const PrivKeySize = 32

// DeriveRoleKey derives a role-specific private key from a root key.
//
// The derivation is blake256(rootKey || 0x00 || role), reduced mod the curve
// order by the key parser. It is one-way: a role key does not reveal the
// root key.
func DeriveRoleKey(rootKey []byte, role string) ([]byte, error) {
	if len(rootKey) != PrivKeySize {
		return nil, fmt.Errorf("keys: expected %d byte root key, got %d", PrivKeySize, len(rootKey))
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	h := blake256.New()
	h.Write(rootKey)
	h.Write([]byte{0})
	h.Write([]byte(role))
	return h.Sum(nil), nil
}

// PrivKeyFromBytes parses a raw 32-byte private key.
func PrivKeyFromBytes(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != PrivKeySize {
		return nil, fmt.Errorf("keys: expected %d byte private key, got %d", PrivKeySize, len(b))
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("keys: private key is zero")
	}
	return priv, nil
}

// Address returns the P2PKH address for a private key's public key.
func Address(priv *secp256k1.PrivateKey, params *chaincfg.Params) (stdaddr.Address, error) {
	if priv == nil {
		return nil, fmt.Errorf("keys: missing private key")
	}
	if params == nil {
		return nil, fmt.Errorf("keys: missing chain params")
	}
	pkHash := dcrutil.Hash160(priv.PubKey().SerializeCompressed())
	return stdaddr.NewAddressPubKeyHashEcdsaSecp256k1V0(pkHash, params)
}

// AddressString is Address rendered for display and config files.
func AddressString(keyBytes []byte, params *chaincfg.Params) (string, error) {
	priv, err := PrivKeyFromBytes(keyBytes)
	if err != nil {
		return "", err
	}
	addr, err := Address(priv, params)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}
