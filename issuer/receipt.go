package issuer

import (
	"encoding/hex"
	"encoding/json"

	"credanchor.io/anchor/merkle"
)

// Receipt proves one credential's inclusion in an anchored batch. It is the
// holder-facing artifact: leaf hash plus proof plus the transaction carrying
// the root is everything verification needs.
type Receipt struct {
	Proof      []merkle.ProofEntry `json:"proof"`
	MerkleRoot string              `json:"merkle_root"`
	TxID       string              `json:"tx_id"`
}

// Verify folds the proof over leafHash and compares against MerkleRoot.
// A nil hash selects sha256.
func (r *Receipt) Verify(leafHash []byte, hash merkle.HashFunc) bool {
	root, err := hex.DecodeString(r.MerkleRoot)
	if err != nil || len(root) == 0 {
		return false
	}
	return merkle.VerifyProof(leafHash, r.Proof, root, hash)
}

// CertificateContext is the JSON-LD context of the wrapped certificate
// artifact.
const CertificateContext = "https://w3id.org/blockcerts/v1"

// BlockchainCertificate packages the original credential document together
// with its anchoring receipt into a single self-contained artifact.
type BlockchainCertificate struct {
	Context  string          `json:"@context"`
	Type     string          `json:"type"`
	Document json.RawMessage `json:"document"`
	Receipt  *Receipt        `json:"receipt"`
}

// NewBlockchainCertificate wraps document and receipt. A credential anchored
// by precomputed leaf hash has no document; its certificate carries only the
// receipt.
func NewBlockchainCertificate(document json.RawMessage, receipt *Receipt) *BlockchainCertificate {
	return &BlockchainCertificate{
		Context:  CertificateContext,
		Type:     "BlockchainCertificate",
		Document: document,
		Receipt:  receipt,
	}
}
