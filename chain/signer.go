package chain

import (
	"context"
	"fmt"

	"github.com/decred/dcrd/dcrec"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4"
	"github.com/decred/dcrd/txscript/v4/sign"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"

	"credanchor.io/anchor/txbuild"
)

// KeySigner signs single-input P2PKH anchoring transactions in-process with
// the issuing key. It is the reference Signer for tests and simnet batches;
// production setups are expected to hand the unsigned transaction to a wallet.
type KeySigner struct {
	priv   *secp256k1.PrivateKey
	params stdaddr.AddressParams
}

// NewKeySigner wraps a raw issuing key.
func NewKeySigner(priv *secp256k1.PrivateKey, params stdaddr.AddressParams) *KeySigner {
	return &KeySigner{priv: priv, params: params}
}

var _ Signer = (*KeySigner)(nil)

// Address returns the P2PKH address of the issuing key. The funding input
// must pay this address or Sign refuses.
func (s *KeySigner) Address() (string, error) {
	pkHash := dcrutil.Hash160(s.priv.PubKey().SerializeCompressed())
	addr, err := stdaddr.NewAddressPubKeyHashEcdsaSecp256k1V0(pkHash, s.params)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// Sign produces the signature script for the single input and returns a
// signed copy. The unsigned transaction is never mutated.
func (s *KeySigner) Sign(ctx context.Context, utx *txbuild.UnsignedTx) (*wire.MsgTx, error) {
	_ = ctx
	if utx == nil || utx.Tx == nil {
		return nil, fmt.Errorf("chain: nothing to sign")
	}
	own, err := s.Address()
	if err != nil {
		return nil, err
	}
	if utx.Input.Address != "" && utx.Input.Address != own {
		return nil, fmt.Errorf("chain: input pays %s, signing key controls %s", utx.Input.Address, own)
	}

	addr, err := stdaddr.DecodeAddress(own, s.params)
	if err != nil {
		return nil, err
	}
	_, pkScript := addr.PaymentScript()

	signed := utx.Tx.Copy()
	sigScript, err := sign.SignatureScript(signed, 0, pkScript, txscript.SigHashAll,
		s.priv.Serialize(), dcrec.STEcdsaSecp256k1, true)
	if err != nil {
		return nil, fmt.Errorf("chain: sign input 0: %w", err)
	}
	signed.TxIn[0].SignatureScript = sigScript
	return signed, nil
}
