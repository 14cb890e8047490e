package merkle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Side names which side of the concatenation a proof sibling occupies.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// ProofEntry is one step of an inclusion proof: the sibling hash and the side
// it occupies relative to the running hash.
type ProofEntry struct {
	Hash []byte
	Side Side
}

// proofEntryJSON is the persisted receipt form of a ProofEntry.
type proofEntryJSON struct {
	SiblingHash string `json:"sibling_hash"`
	Side        string `json:"side"`
}

func (e ProofEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(proofEntryJSON{
		SiblingHash: hex.EncodeToString(e.Hash),
		Side:        e.Side.String(),
	})
}

func (e *ProofEntry) UnmarshalJSON(b []byte) error {
	var j proofEntryJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	h, err := hex.DecodeString(j.SiblingHash)
	if err != nil {
		return fmt.Errorf("merkle: invalid sibling hash hex: %w", err)
	}
	switch j.Side {
	case "left":
		e.Side = SideLeft
	case "right":
		e.Side = SideRight
	default:
		return fmt.Errorf("merkle: invalid proof side %q", j.Side)
	}
	e.Hash = h
	return nil
}
