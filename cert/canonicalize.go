package cert

import (
	"encoding/json"

	"github.com/piprate/json-gold/ld"
)

// Canonicalizer turns a credential document into the unique byte string that
// is hashed into the commitment tree. Implementations must be deterministic:
// identical input bytes always yield identical output bytes.
type Canonicalizer interface {
	Canonicalize(doc json.RawMessage) ([]byte, error)
}

// CanonicalizerFunc adapts a function to the Canonicalizer interface.
type CanonicalizerFunc func(doc json.RawMessage) ([]byte, error)

func (f CanonicalizerFunc) Canonicalize(doc json.RawMessage) ([]byte, error) { return f(doc) }

// JSONLDCanonicalizer normalizes JSON-LD documents with URDNA2015 into
// canonical N-Quads, the form the original credential was signed over.
//
// Remote @context documents are resolved through the injected loader. Use
// NewCachingLoader so repeated context URLs are fetched once per orchestrator
// lifetime; the cache is read-through and is never invalidated.
type JSONLDCanonicalizer struct {
	proc   *ld.JsonLdProcessor
	loader ld.DocumentLoader
}

// NewCachingLoader returns a process-external document loader wrapped in a
// read-through cache. The cache is an explicit instance, constructed at setup
// and injected, so tests can substitute a loader with pinned documents.
func NewCachingLoader() *ld.CachingDocumentLoader {
	return ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(nil))
}

// NewJSONLDCanonicalizer builds a canonicalizer around loader. A nil loader
// gets a fresh caching loader.
func NewJSONLDCanonicalizer(loader ld.DocumentLoader) *JSONLDCanonicalizer {
	if loader == nil {
		loader = NewCachingLoader()
	}
	return &JSONLDCanonicalizer{proc: ld.NewJsonLdProcessor(), loader: loader}
}

func (c *JSONLDCanonicalizer) Canonicalize(doc json.RawMessage) ([]byte, error) {
	var parsed map[string]any
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, wrapError(KindCanonical, "CRED-CANON-101", "credential is not valid JSON", err)
	}

	opts := ld.NewJsonLdOptions("")
	opts.Algorithm = ld.AlgorithmURDNA2015
	opts.Format = "application/n-quads"
	opts.DocumentLoader = c.loader

	normalized, err := c.proc.Normalize(parsed, opts)
	if err != nil {
		return nil, wrapError(KindCanonical, "CRED-CANON-102", "JSON-LD normalization failed", err)
	}
	nquads, ok := normalized.(string)
	if !ok {
		return nil, newError(KindInternal, "CRED-CANON-103", "normalization returned unexpected type")
	}
	if nquads == "" {
		// An empty canonical form means no statements survived expansion,
		// which silently commits to nothing. Reject it.
		return nil, newError(KindCanonical, "CRED-CANON-104", "canonical form is empty")
	}
	return []byte(nquads), nil
}
