// Package securestore seals small secrets (the session token) before they
// touch the disk.
package securestore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

var magic = []byte("MSENC1") // 6 bytes magic header

// ErrCorrupt is returned when a sealed value cannot be opened.
var ErrCorrupt = errors.New("securestore: invalid key or corrupted data")

type kdfParams struct {
	timeCost uint32
	memoryKB uint32
	threads  uint8
	salt     []byte
	nonce    []byte
}

// defaultKDF returns the parameters used for new values. Memory is kept low
// since this runs on every command invocation.
func defaultKDF() (kdfParams, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return kdfParams{}, err
	}
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return kdfParams{}, err
	}
	return kdfParams{
		timeCost: 1,
		memoryKB: 8 * 1024,
		threads:  2,
		salt:     salt,
		nonce:    nonce,
	}, nil
}

func deriveKey(p kdfParams, secret []byte) []byte {
	return argon2.IDKey(secret, p.salt, p.timeCost, p.memoryKB, p.threads, 32)
}

// writeHeader writes magic, version, kdf params, salt and nonce to w.
func writeHeader(w io.Writer, p kdfParams) error {
	fields := []any{
		uint8(1),
		p.timeCost,
		p.memoryKB,
		p.threads,
		uint16(len(p.salt)),
	}
	if _, err := w.Write(magic); err != nil {
		return err
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if _, err := w.Write(p.salt); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(p.nonce))); err != nil {
		return err
	}
	_, err := w.Write(p.nonce)
	return err
}

// readHeader parses the header and returns the kdf params.
func readHeader(r io.Reader) (kdfParams, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return kdfParams{}, err
	}
	if !bytes.Equal(hdr[:], magic) {
		return kdfParams{}, errors.New("invalid magic header")
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return kdfParams{}, err
	}
	if version != 1 {
		return kdfParams{}, fmt.Errorf("unsupported version: %d", version)
	}

	var p kdfParams
	for _, f := range []any{&p.timeCost, &p.memoryKB, &p.threads} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return kdfParams{}, err
		}
	}
	var saltLen uint16
	if err := binary.Read(r, binary.LittleEndian, &saltLen); err != nil {
		return kdfParams{}, err
	}
	p.salt = make([]byte, saltLen)
	if _, err := io.ReadFull(r, p.salt); err != nil {
		return kdfParams{}, err
	}
	var nonceLen uint8
	if err := binary.Read(r, binary.LittleEndian, &nonceLen); err != nil {
		return kdfParams{}, err
	}
	p.nonce = make([]byte, nonceLen)
	if _, err := io.ReadFull(r, p.nonce); err != nil {
		return kdfParams{}, err
	}
	return p, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with a key derived from secret and returns header
// plus ciphertext.
func Seal(secret, plaintext []byte) ([]byte, error) {
	p, err := defaultKDF()
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(deriveKey(p, secret))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeHeader(&buf, p); err != nil {
		return nil, err
	}
	buf.Write(gcm.Seal(nil, p.nonce, plaintext, magic))
	return buf.Bytes(), nil
}

// Open reverses Seal.
func Open(secret, sealed []byte) ([]byte, error) {
	r := bytes.NewReader(sealed)
	p, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	gcm, err := newGCM(deriveKey(p, secret))
	if err != nil {
		return nil, err
	}
	ct, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	pt, err := gcm.Open(nil, p.nonce, ct, magic)
	if err != nil {
		return nil, ErrCorrupt
	}
	return pt, nil
}

// LoadOrCreateSecret returns the per-install secret stored at path, creating
// it (mode 0600) on first use.
func LoadOrCreateSecret(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil && len(b) >= 32 {
		return b, nil
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read secret: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create secret dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, secret, 0600); err != nil {
		return nil, fmt.Errorf("write secret: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, err
	}
	return secret, nil
}
