package issuer

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"credanchor.io/anchor/cert"
	"credanchor.io/anchor/storage"
)

// CredentialArtifacts is the persisted state of one credential's receipt and
// certificate.
type CredentialArtifacts struct {
	CredentialID string
	Receipt      []byte
	Certificate  []byte

	ReceiptCID     cid.Cid
	CertificateCID cid.Cid

	// Err is the last persistence failure, nil once both artifacts (and any
	// filesystem mirror) are written.
	Err error
}

type batchIndex struct {
	BatchID    string       `json:"batch_id"`
	MerkleRoot string       `json:"merkle_root"`
	TxID       string       `json:"tx_id"`
	Entries    []indexEntry `json:"entries"`
}

type indexEntry struct {
	CredentialID   string `json:"credential_id"`
	ReceiptCID     string `json:"receipt_cid,omitempty"`
	CertificateCID string `json:"certificate_cid,omitempty"`
}

// persistBatch marshals and stores every credential's artifacts plus the
// batch index. Failures are recorded per credential, never returned: the
// batch is already anchored.
func (o *BatchOrchestrator) persistBatch(res *Result, creds []*cert.Credential) {
	res.Artifacts = make([]CredentialArtifacts, len(creds))
	for i, c := range creds {
		a := &res.Artifacts[i]
		a.CredentialID = c.ID

		receiptJSON, err := json.Marshal(res.Receipts[i])
		if err != nil {
			a.Err = err
			continue
		}
		certJSON, err := json.Marshal(NewBlockchainCertificate(c.Document, res.Receipts[i]))
		if err != nil {
			a.Err = err
			continue
		}
		a.Receipt = receiptJSON
		a.Certificate = certJSON

		o.persistCredential(res.BatchID, a)
		if a.Err != nil {
			o.log.Warnf("batch %s: persisting artifacts for %s: %v", res.BatchID, c.ID, a.Err)
		}
	}
	o.persistIndex(res)
}

// RetryPersist re-attempts any artifact that failed to persist, then rewrites
// the batch index. It never touches the chain.
func (o *BatchOrchestrator) RetryPersist(res *Result) {
	for i := range res.Artifacts {
		a := &res.Artifacts[i]
		if a.Err == nil {
			continue
		}
		a.Err = nil
		o.persistCredential(res.BatchID, a)
	}
	o.persistIndex(res)
}

func (o *BatchOrchestrator) persistCredential(batchID string, a *CredentialArtifacts) {
	if o.cfg.Store != nil {
		id, err := o.cfg.Store.Put(a.Receipt)
		if err != nil {
			a.Err = fmt.Errorf("archiving receipt: %w", err)
			return
		}
		a.ReceiptCID = id

		id, err = o.cfg.Store.Put(a.Certificate)
		if err != nil {
			a.Err = fmt.Errorf("archiving certificate: %w", err)
			return
		}
		a.CertificateCID = id
	}

	if o.cfg.OutDir != "" {
		name := sanitizeID(a.CredentialID)
		if err := writeArtifact(filepath.Join(o.cfg.OutDir, batchID, "receipts", name+".json"), a.Receipt); err != nil {
			a.Err = err
			return
		}
		if err := writeArtifact(filepath.Join(o.cfg.OutDir, batchID, "certificates", name+".json"), a.Certificate); err != nil {
			a.Err = err
			return
		}
	}
}

func (o *BatchOrchestrator) persistIndex(res *Result) {
	res.IndexErr = nil
	if o.cfg.Store == nil && o.cfg.OutDir == "" {
		return
	}

	idx := batchIndex{
		BatchID:    res.BatchID,
		MerkleRoot: hex.EncodeToString(res.MerkleRoot),
		TxID:       res.TxID.String(),
		Entries:    make([]indexEntry, len(res.Artifacts)),
	}
	// Entries carry content addresses even when no archive is configured;
	// the address is derived from the bytes, so a later archive import of
	// the mirrored files lands under the same CID.
	for i := range res.Artifacts {
		a := &res.Artifacts[i]
		e := indexEntry{CredentialID: a.CredentialID}
		switch {
		case a.ReceiptCID.Defined():
			e.ReceiptCID = a.ReceiptCID.String()
		case len(a.Receipt) > 0:
			e.ReceiptCID = storage.ContentIDString(a.Receipt)
		}
		switch {
		case a.CertificateCID.Defined():
			e.CertificateCID = a.CertificateCID.String()
		case len(a.Certificate) > 0:
			e.CertificateCID = storage.ContentIDString(a.Certificate)
		}
		idx.Entries[i] = e
	}

	b, err := json.Marshal(idx)
	if err != nil {
		res.IndexErr = err
		return
	}
	if o.cfg.Store != nil {
		if _, err := o.cfg.Store.Put(b); err != nil {
			res.IndexErr = fmt.Errorf("archiving batch index: %w", err)
			return
		}
	}
	if o.cfg.OutDir != "" {
		if err := writeArtifact(filepath.Join(o.cfg.OutDir, res.BatchID, "index.json"), b); err != nil {
			res.IndexErr = err
		}
	}
}

func writeArtifact(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// sanitizeID maps a credential id to a filesystem-safe name. Distinct ids may
// collide after sanitizing; the batch index remains the authoritative mapping.
func sanitizeID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
