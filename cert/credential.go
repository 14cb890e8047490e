// Package cert models the credential documents an anchoring batch is built
// from: validation, canonicalization, and leaf hashing.
package cert

import (
	"bytes"
	"encoding/json"
)

// Credential is one document to be anchored. The caller supplies credentials
// in batch order; that order assigns leaf indices and must not be changed once
// hashing has started.
//
// Document holds the original credential JSON. LeafHash may be set instead of
// Document when the caller has already canonicalized and hashed the bytes
// elsewhere; when both are set, LeafHash wins and Document is carried only for
// the final certificate artifact.
type Credential struct {
	// ID is unique within a batch and names the persisted artifacts.
	ID string

	// RecipientAddress receives the per-credential payment output.
	RecipientAddress string

	// RevocationAddress, when non-empty, receives a per-credential revocation
	// output immediately after the recipient output.
	RevocationAddress string

	Document json.RawMessage
	LeafHash []byte
}

// Validator checks one credential before hashing. Returning an error aborts
// the whole batch; nothing is issued.
type Validator func(*Credential) error

// ValidateBasic is the default Validator. It enforces the structural minimum
// for a batch member: an id, a recipient address, and either a JSON object
// document or a precomputed leaf hash.
func ValidateBasic(c *Credential) error {
	if c == nil {
		return newError(KindValidation, "CRED-VAL-001", "nil credential")
	}
	if c.ID == "" {
		return newError(KindValidation, "CRED-VAL-002", "credential id is required")
	}
	if c.RecipientAddress == "" {
		return newError(KindValidation, "CRED-VAL-003", "recipient address is required: "+c.ID)
	}
	if len(c.LeafHash) > 0 {
		return nil
	}
	if len(c.Document) == 0 {
		return newError(KindValidation, "CRED-VAL-004", "credential has neither document nor leaf hash: "+c.ID)
	}
	trimmed := bytes.TrimLeft(c.Document, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return newError(KindValidation, "CRED-VAL-005", "credential document must be a JSON object: "+c.ID)
	}
	var probe map[string]any
	if err := json.Unmarshal(c.Document, &probe); err != nil {
		return wrapError(KindValidation, "CRED-VAL-005", "credential document must be a JSON object: "+c.ID, err)
	}
	return nil
}
