package keys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/decred/dcrd/chaincfg/v3"
)

var testParams = chaincfg.SimNetParams()

func testKey(seed byte) []byte {
	return bytes.Repeat([]byte{seed}, PrivKeySize)
}

func newTestStore(t *testing.T) *KeyStore {
	t.Helper()
	ks, err := CreateKeyStore(t.TempDir(), testParams)
	if err != nil {
		t.Fatalf("CreateKeyStore failed: %v", err)
	}
	return ks
}

func TestInitializeRootKeyAndExport(t *testing.T) {
	ks := newTestStore(t)

	addr, path, err := ks.InitializeRootKey("issuer-1", testKey(7), false)
	if err != nil {
		t.Fatalf("InitializeRootKey failed: %v", err)
	}
	if addr == "" || path == "" {
		t.Fatalf("expected address and path, got %q %q", addr, path)
	}

	got, err := ks.ExportAddress("issuer-1", "")
	if err != nil {
		t.Fatalf("ExportAddress failed: %v", err)
	}
	if got != addr {
		t.Fatalf("address mismatch: got %s want %s", got, addr)
	}

	// A second init without overwrite must not clobber the key.
	if _, _, err := ks.InitializeRootKey("issuer-1", testKey(8), false); err == nil {
		t.Fatalf("expected error on re-init without overwrite")
	}
	if _, _, err := ks.InitializeRootKey("issuer-1", testKey(8), true); err != nil {
		t.Fatalf("overwrite init failed: %v", err)
	}
}

func TestDeriveKeyFromRole(t *testing.T) {
	ks := newTestStore(t)

	rootAddr, _, err := ks.InitializeRootKey("issuer-1", testKey(7), false)
	if err != nil {
		t.Fatalf("InitializeRootKey failed: %v", err)
	}

	revAddr, _, err := ks.DeriveKeyFromRole("issuer-1", "revocation", false)
	if err != nil {
		t.Fatalf("DeriveKeyFromRole failed: %v", err)
	}
	if revAddr == rootAddr {
		t.Fatalf("role address must differ from root address")
	}

	// Deterministic: re-deriving yields the same address.
	revAddr2, _, err := ks.DeriveKeyFromRole("issuer-1", "revocation", true)
	if err != nil {
		t.Fatalf("re-derive failed: %v", err)
	}
	if revAddr2 != revAddr {
		t.Fatalf("derivation not deterministic: %s vs %s", revAddr2, revAddr)
	}

	// Different roles get different keys.
	chgAddr, _, err := ks.DeriveKeyFromRole("issuer-1", "change", false)
	if err != nil {
		t.Fatalf("DeriveKeyFromRole(change) failed: %v", err)
	}
	if chgAddr == revAddr {
		t.Fatalf("expected distinct addresses per role")
	}
}

func TestLoadKeySources(t *testing.T) {
	ks := newTestStore(t)
	if _, _, err := ks.InitializeRootKey("issuer-1", testKey(9), false); err != nil {
		t.Fatalf("InitializeRootKey failed: %v", err)
	}
	if _, _, err := ks.DeriveKeyFromRole("issuer-1", "revocation", false); err != nil {
		t.Fatalf("DeriveKeyFromRole failed: %v", err)
	}

	byHex, err := ks.LoadKey("0x"+strings.Repeat("09", PrivKeySize), "", "", "")
	if err != nil {
		t.Fatalf("LoadKey(hex) failed: %v", err)
	}
	byName, err := ks.LoadKey("", "issuer-1", "", "")
	if err != nil {
		t.Fatalf("LoadKey(name) failed: %v", err)
	}
	if !bytes.Equal(byHex, byName) {
		t.Fatalf("hex and stored key differ")
	}

	byRole, err := ks.LoadKey("", "issuer-1", "revocation", "")
	if err != nil {
		t.Fatalf("LoadKey(role) failed: %v", err)
	}
	if bytes.Equal(byRole, byName) {
		t.Fatalf("role key must differ from root key")
	}

	if _, err := ks.LoadKey("", "", "", ""); err == nil {
		t.Fatalf("expected error with no signer")
	}
}

func TestListKeys(t *testing.T) {
	ks := newTestStore(t)
	if _, _, err := ks.InitializeRootKey("b-issuer", testKey(1), false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ks.InitializeRootKey("a-issuer", testKey(2), false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ks.DeriveKeyFromRole("b-issuer", "revocation", false); err != nil {
		t.Fatal(err)
	}

	entries, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Identifier != "a-issuer" || entries[1].Identifier != "b-issuer" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if len(entries[1].Roles) != 1 || entries[1].Roles[0] != "revocation" {
		t.Fatalf("unexpected roles: %+v", entries[1].Roles)
	}
}

func TestCheckKeyNameAndRole(t *testing.T) {
	for _, bad := range []string{"", "has space", "slash/name", "dot.name"} {
		if err := CheckKeyName(bad); err == nil {
			t.Errorf("CheckKeyName(%q): expected error", bad)
		}
		if err := CheckRole(bad); err == nil {
			t.Errorf("CheckRole(%q): expected error", bad)
		}
	}
	for _, good := range []string{"issuer-1", "rev_key", "A9"} {
		if err := CheckKeyName(good); err != nil {
			t.Errorf("CheckKeyName(%q): %v", good, err)
		}
	}
}

func TestPrivKeyFromBytes(t *testing.T) {
	if _, err := PrivKeyFromBytes(make([]byte, PrivKeySize)); err == nil {
		t.Fatalf("expected error for zero key")
	}
	if _, err := PrivKeyFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short key")
	}
	if _, err := PrivKeyFromBytes(testKey(3)); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}
