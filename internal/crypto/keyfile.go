// Package crypto stores the EVM funding key encrypted at rest. Keys are
// sealed with PBKDF2-HMAC-SHA256 derivation and AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32

	// keyfileVersion is the sealed-key JSON schema version.
	keyfileVersion = 1
)

// sealedKeyJSON is the on-disk format of a sealed private key. All binary
// fields use standard base64.
type sealedKeyJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource tells LoadKey where the funding key comes from. Populate it
// from the wallet config section.
type KeySource struct {
	// RawKey is a hex private key (0x prefix optional). Takes precedence
	// when set; meant for development only.
	RawKey string

	// SealedPath points at a JSON file produced by Seal.
	SealedPath string

	// Passphrase unseals the file at SealedPath.
	Passphrase string
}

// Seal encrypts a hex private key under the passphrase and returns the
// JSON blob to write to disk.
func Seal(keyHex, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("crypto: passphrase must not be empty")
	}

	keyBytes, err := hex.DecodeString(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("crypto: expected 32-byte key, got %d bytes", len(keyBytes))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	out := sealedKeyJSON{
		Version:    keyfileVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, keyBytes, nil)),
	}

	return json.MarshalIndent(out, "", "  ")
}

// Unseal decrypts a blob produced by Seal and returns the hex private key
// without 0x prefix.
func Unseal(sealed []byte, passphrase string) (string, error) {
	if passphrase == "" {
		return "", errors.New("crypto: passphrase must not be empty")
	}

	var stored sealedKeyJSON
	if err := json.Unmarshal(sealed, &stored); err != nil {
		return "", fmt.Errorf("crypto: parsing sealed key JSON: %w", err)
	}
	if stored.Version != keyfileVersion {
		return "", fmt.Errorf("crypto: unsupported keyfile version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: unseal failed (wrong passphrase?): %w", err)
	}

	return hex.EncodeToString(plaintext), nil
}

// LoadKey resolves the funding key: raw key first, sealed file second.
func LoadKey(src KeySource) (string, error) {
	if src.RawKey != "" {
		k := strings.TrimPrefix(src.RawKey, "0x")
		if _, err := hex.DecodeString(k); err != nil {
			return "", fmt.Errorf("crypto: raw key is not valid hex: %w", err)
		}
		return k, nil
	}

	if src.SealedPath != "" {
		data, err := os.ReadFile(src.SealedPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading sealed key file: %w", err)
		}
		return Unseal(data, src.Passphrase)
	}

	return "", errors.New("crypto: no key source configured (set raw key or sealed key path)")
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}
