package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/decred/dcrd/chaincfg/v3"
)

// KeyStore is a simple local-first store for issuing keys.
//
// Features:
// - secp256k1 keys only
// - stores keys on the local filesystem, hex-encoded, mode 0600
// - derives deterministic role keys (revocation, change) from the root key
type KeyStore struct {
	Directory string
	Params    *chaincfg.Params
}

type KeyEntry struct {
	Identifier string
	Roles      []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".credanchor", "keys"), nil
}

func CreateKeyStore(directory string, params *chaincfg.Params) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	if params == nil {
		return nil, errors.New("keys: missing chain params")
	}
	return &KeyStore{Directory: directory, Params: params}, nil
}

func (ks *KeyStore) rootKeyFilePath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) roleKeyFilePath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

func CheckKeyName(identifier string) error {
	if identifier == "" {
		return errors.New("identifier cannot be empty")
	}
	for _, char := range identifier {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in identifier", char)
	}
	return nil
}

func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	for _, char := range role {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in role", char)
	}
	return nil
}

func ParseKeyHex(keyHex string) ([]byte, error) {
	keyHex = strings.TrimSpace(keyHex)
	keyHex = strings.TrimPrefix(keyHex, "0x")
	data, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	if len(data) != PrivKeySize {
		return nil, fmt.Errorf("expected key length of %d bytes, got %d", PrivKeySize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveKeyToFile(filePath string, key []byte, overwrite bool) error {
	if len(key) != PrivKeySize {
		return fmt.Errorf("expected key length of %d bytes", PrivKeySize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadKeyFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseKeyHex(strings.TrimSpace(string(data)))
}

// GenerateRootKey creates a fresh random root key for identifier and returns
// its address and file path.
func (ks *KeyStore) GenerateRootKey(identifier string, overwrite bool) (address string, filePath string, err error) {
	key := make([]byte, PrivKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", "", err
	}
	return ks.InitializeRootKey(identifier, key, overwrite)
}

// InitializeRootKey stores key as identifier's root key and returns its
// address and file path.
func (ks *KeyStore) InitializeRootKey(identifier string, key []byte, overwrite bool) (address string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	address, err = AddressString(key, ks.Params)
	if err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyFilePath(identifier)
	if err := ks.saveKeyToFile(filePath, key, overwrite); err != nil {
		return "", "", err
	}
	return address, filePath, nil
}

// DeriveKeyFromRole derives and stores a role key from identifier's root key.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (address string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootKey, err := ks.loadKeyFromFile(ks.rootKeyFilePath(from))
	if err != nil {
		return "", "", err
	}
	roleKey, err := DeriveRoleKey(rootKey, role)
	if err != nil {
		return "", "", err
	}
	address, err = AddressString(roleKey, ks.Params)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleKeyFilePath(from, role)
	if err := ks.saveKeyToFile(filePath, roleKey, overwrite); err != nil {
		return "", "", err
	}
	return address, filePath, nil
}

// ExportAddress returns the address of a stored key without exposing the key.
func (ks *KeyStore) ExportAddress(identifier string, role string) (string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", err
	}
	var key []byte
	var err error
	if role == "" {
		key, err = ks.loadKeyFromFile(ks.rootKeyFilePath(identifier))
	} else {
		if err := CheckRole(role); err != nil {
			return "", err
		}
		key, err = ks.loadKeyFromFile(ks.roleKeyFilePath(identifier, role))
	}
	if err != nil {
		return "", err
	}
	return AddressString(key, ks.Params)
}

// LoadKey resolves a private key from the first provided source: raw hex,
// explicit key file, or a stored identifier plus optional role.
func (ks *KeyStore) LoadKey(keyHex, signerName, signerRole, keyFile string) ([]byte, error) {
	if keyHex != "" {
		return ParseKeyHex(keyHex)
	}
	if keyFile != "" {
		return ks.loadKeyFromFile(keyFile)
	}
	if signerName != "" {
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerRole == "" {
			return ks.loadKeyFromFile(ks.rootKeyFilePath(signerName))
		}
		if err := CheckRole(signerRole); err != nil {
			return nil, err
		}
		return ks.loadKeyFromFile(ks.roleKeyFilePath(signerName, signerRole))
	}
	return nil, errors.New("no signer provided")
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)

	var result []KeyEntry
	for _, identifier := range identifiers {
		rolesDir := filepath.Join(ks.Directory, identifier, "roles")
		roleEntries, rerr := os.ReadDir(rolesDir)
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Identifier: identifier, Roles: roles})
	}
	return result, nil
}
