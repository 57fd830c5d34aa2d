package vault

import (
	"fmt"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
)

// KeyFileName sits beside the encrypted collections. Its bytes are the
// vault password, not the cipher key; the store runs its own KDF.
const KeyFileName = "vault.key"

const keyFileSize = 32

// HasKey reports whether a keyfile already exists, which doubles as
// the first-run check.
func HasKey(fsys zfilesystem.ReadWriteFileFS) bool {
	_, err := fsys.ReadFile(KeyFileName)
	return err == nil
}

// LoadOrCreateKey returns the keyfile bytes, generating the file on
// first run. The file is written 0600; anyone who can read it can
// open the vault.
func LoadOrCreateKey(fsys zfilesystem.ReadWriteFileFS) ([]byte, error) {
	key, err := fsys.ReadFile(KeyFileName)
	if err == nil {
		if len(key) != keyFileSize {
			return nil, fmt.Errorf("vault: keyfile is %d bytes, want %d", len(key), keyFileSize)
		}
		return key, nil
	}

	key, err = zcrypto.RandBytes(keyFileSize)
	if err != nil {
		return nil, fmt.Errorf("vault: generate key: %w", err)
	}
	if err := fsys.WriteFile(KeyFileName, key, 0o600); err != nil {
		return nil, fmt.Errorf("vault: write keyfile: %w", err)
	}
	return key, nil
}
