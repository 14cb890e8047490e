package cert

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/piprate/json-gold/ld"
)

// sampleDoc uses an inline @context so canonicalization never touches the
// network.
func sampleDoc(name string) json.RawMessage {
	return json.RawMessage(`{
		"@context": {"name": "http://schema.org/name", "email": "http://schema.org/email"},
		"name": "` + name + `",
		"email": "` + name + `@example.org"
	}`)
}

func TestValidateBasic(t *testing.T) {
	tests := []struct {
		name   string
		cred   *Credential
		ruleID string
	}{
		{"nil", nil, "CRED-VAL-001"},
		{"missing id", &Credential{RecipientAddress: "Ssx"}, "CRED-VAL-002"},
		{"missing recipient", &Credential{ID: "a"}, "CRED-VAL-003"},
		{"no document", &Credential{ID: "a", RecipientAddress: "Ssx"}, "CRED-VAL-004"},
		{"non-object document", &Credential{ID: "a", RecipientAddress: "Ssx", Document: json.RawMessage(`[1,2]`)}, "CRED-VAL-005"},
		{"malformed document", &Credential{ID: "a", RecipientAddress: "Ssx", Document: json.RawMessage(`{"x":`)}, "CRED-VAL-005"},
		{"ok document", &Credential{ID: "a", RecipientAddress: "Ssx", Document: sampleDoc("alice")}, ""},
		{"ok precomputed", &Credential{ID: "a", RecipientAddress: "Ssx", LeafHash: bytes.Repeat([]byte{1}, 32)}, ""},
	}
	for _, tt := range tests {
		err := ValidateBasic(tt.cred)
		if tt.ruleID == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if !IsKind(err, KindValidation) {
			t.Fatalf("%s: got %v, want KindValidation", tt.name, err)
		}
		if got := RuleID(err); got != tt.ruleID {
			t.Fatalf("%s: got rule %s, want %s", tt.name, got, tt.ruleID)
		}
	}
}

func TestJSONLDCanonicalizeDeterministic(t *testing.T) {
	canon := NewJSONLDCanonicalizer(nil)
	a, err := canon.Canonicalize(sampleDoc("alice"))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := canon.Canonicalize(sampleDoc("alice"))
	if err != nil {
		t.Fatalf("canonicalize again: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("canonical bytes differ between runs")
	}
	c, err := canon.Canonicalize(sampleDoc("bob"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, c) {
		t.Fatalf("distinct documents canonicalized identically")
	}
}

func TestJSONLDCanonicalizeKeyOrderIndependent(t *testing.T) {
	canon := NewJSONLDCanonicalizer(nil)
	a, err := canon.Canonicalize(json.RawMessage(`{"@context":{"name":"http://schema.org/name","email":"http://schema.org/email"},"name":"x","email":"y"}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := canon.Canonicalize(json.RawMessage(`{"email":"y","name":"x","@context":{"email":"http://schema.org/email","name":"http://schema.org/name"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("key order changed the canonical form")
	}
}

func TestJSONLDCanonicalizeErrors(t *testing.T) {
	canon := NewJSONLDCanonicalizer(nil)

	if _, err := canon.Canonicalize(json.RawMessage(`not json`)); !IsKind(err, KindCanonical) || RuleID(err) != "CRED-CANON-101" {
		t.Fatalf("malformed JSON: got %v", err)
	}

	// A document whose statements all drop out of expansion commits to
	// nothing and must be rejected.
	if _, err := canon.Canonicalize(json.RawMessage(`{"unmapped": "term"}`)); RuleID(err) != "CRED-CANON-104" {
		t.Fatalf("empty canonical form: got %v", err)
	}
}

type failingLoader struct{}

func (failingLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return nil, errors.New("loader offline")
}

func TestJSONLDCanonicalizeUnresolvedContext(t *testing.T) {
	canon := NewJSONLDCanonicalizer(failingLoader{})
	doc := json.RawMessage(`{"@context": "https://w3id.org/blockcerts/v1", "type": "BlockchainCertificate"}`)
	_, err := canon.Canonicalize(doc)
	if !IsKind(err, KindCanonical) {
		t.Fatalf("unresolved context: got %v, want KindCanonical", err)
	}
}

func TestHashForAlg(t *testing.T) {
	msg := []byte("anchored credential")
	sums := map[string][]byte{}
	for _, alg := range []string{"sha256", "sha512", "sha3-256"} {
		h, err := HashForAlg(alg)
		if err != nil {
			t.Fatalf("HashForAlg(%s): %v", alg, err)
		}
		sums[alg] = h(msg)
	}
	if len(sums["sha256"]) != 32 || len(sums["sha3-256"]) != 32 || len(sums["sha512"]) != 64 {
		t.Fatalf("unexpected digest sizes")
	}
	if bytes.Equal(sums["sha256"], sums["sha3-256"]) {
		t.Fatalf("sha256 and sha3-256 agree, hash switch is broken")
	}
	def, err := HashForAlg("")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(def(msg), sums["sha256"]) {
		t.Fatalf("default algorithm is not sha256")
	}
	if _, err := HashForAlg("md5"); RuleID(err) != "CRED-HASH-201" {
		t.Fatalf("unsupported alg: got %v", err)
	}
}

func TestLeafHasher(t *testing.T) {
	canon := NewJSONLDCanonicalizer(nil)
	h := NewLeafHasher(canon, nil)

	c := &Credential{ID: "a", RecipientAddress: "Ssx", Document: sampleDoc("alice")}
	d1, err := h.HashCredential(c)
	if err != nil {
		t.Fatalf("HashCredential: %v", err)
	}
	d2, err := h.HashCredential(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d1, d2) {
		t.Fatalf("leaf hash is not deterministic")
	}
	if len(d1) != 32 {
		t.Fatalf("leaf hash length: got %d, want 32", len(d1))
	}

	pre := bytes.Repeat([]byte{7}, 32)
	got, err := h.HashCredential(&Credential{ID: "b", RecipientAddress: "Ssx", LeafHash: pre})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pre) {
		t.Fatalf("precomputed leaf hash was not passed through")
	}

	bare := NewLeafHasher(nil, nil)
	if _, err := bare.HashCredential(c); RuleID(err) != "CRED-CANON-105" {
		t.Fatalf("hasher without canonicalizer: got %v", err)
	}
}
