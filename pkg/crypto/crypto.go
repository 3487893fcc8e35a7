// Package crypto implements strata's key hierarchy and per-blob
// authenticated encryption: an Argon2id-derived key-encryption-key wraps a
// random master key, and the master key drives AES-256-GCM AEAD sealing of
// every blob written to a pack.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

const (
	// KeySize is the size in bytes of both the KEK and the master key.
	KeySize = 32
	// NonceSize is the AES-GCM nonce length strata uses for every seal.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
	// SaltSize is the Argon2id salt length.
	SaltSize = 16

	minArgon2Memory  = 64 * 1024 // KiB, i.e. 64 MiB
	minArgon2Time    = 4
	minArgon2Threads = 1
)

// KDFParams records the Argon2id tuning used to derive a key object's KEK.
// Stored alongside the wrapped master key so unlock can reproduce the KEK.
type KDFParams struct {
	Salt    []byte `json:"salt"`
	Memory  uint32 `json:"memory"`  // KiB
	Time    uint32 `json:"time"`    // iterations
	Threads uint8  `json:"threads"` // parallelism
}

// DefaultKDFParams returns parameters meeting spec's floor (memory >= 64MiB,
// time >= 4, parallelism >= 1) with a fresh random salt.
func DefaultKDFParams() (KDFParams, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return KDFParams{}, fmt.Errorf("crypto: generating kdf salt: %w", err)
	}
	return KDFParams{
		Salt:    salt,
		Memory:  minArgon2Memory,
		Time:    minArgon2Time,
		Threads: minArgon2Threads,
	}, nil
}

// Validate rejects parameters below the spec floor, guarding against a
// corrupted or maliciously weakened key object.
func (p KDFParams) Validate() error {
	if len(p.Salt) == 0 {
		return errs.CorruptRepository("kdf: empty salt", nil)
	}
	if p.Memory < minArgon2Memory {
		return errs.CorruptRepository(fmt.Sprintf("kdf: memory %d below floor %d", p.Memory, minArgon2Memory), nil)
	}
	if p.Time < minArgon2Time {
		return errs.CorruptRepository(fmt.Sprintf("kdf: time %d below floor %d", p.Time, minArgon2Time), nil)
	}
	if p.Threads < minArgon2Threads {
		return errs.CorruptRepository("kdf: threads below floor", nil)
	}
	return nil
}

// DeriveKEK runs Argon2id over password with p, producing the
// key-encryption-key used to wrap/unwrap a repository's master key.
func DeriveKEK(password []byte, p KDFParams) []byte {
	return argon2.IDKey(password, p.Salt, p.Time, p.Memory, p.Threads, KeySize)
}

// MasterKey is the random per-repository key that seals every blob.
// Never stored unwrapped.
type MasterKey [KeySize]byte

// NewMasterKey generates a fresh random master key at repository init.
func NewMasterKey() (MasterKey, error) {
	var mk MasterKey
	if _, err := io.ReadFull(rand.Reader, mk[:]); err != nil {
		return mk, fmt.Errorf("crypto: generating master key: %w", err)
	}
	return mk, nil
}

// WrappedKey is the on-disk form of a key object (§3): the Argon2id
// parameters plus the master key sealed under the derived KEK.
type WrappedKey struct {
	KDF        KDFParams `json:"kdf"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"` // includes GCM tag
}

// Wrap seals mk under a KEK derived from password, generating fresh KDF
// parameters and nonce.
func Wrap(mk MasterKey, password []byte) (*WrappedKey, error) {
	params, err := DefaultKDFParams()
	if err != nil {
		return nil, err
	}
	kek := DeriveKEK(password, params)
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating wrap nonce: %w", err)
	}
	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, mk[:], []byte("strata-master-key"))
	return &WrappedKey{KDF: params, Nonce: nonce, Ciphertext: ct}, nil
}

// Unwrap attempts to recover the master key from wk using password.
// Authentication failure is reported as BadPassword: the caller cannot
// distinguish a wrong password from a damaged key object except by trying
// every key object in the repository (spec §4.2).
func (wk *WrappedKey) Unwrap(password []byte) (MasterKey, error) {
	var mk MasterKey
	if err := wk.KDF.Validate(); err != nil {
		return mk, err
	}
	kek := DeriveKEK(password, wk.KDF)
	aead, err := newGCM(kek)
	if err != nil {
		return mk, err
	}
	pt, err := aead.Open(nil, wk.Nonce, wk.Ciphertext, []byte("strata-master-key"))
	if err != nil {
		return mk, errs.BadPassword("unwrapping master key", err)
	}
	if len(pt) != KeySize {
		return mk, errs.CorruptRepository("unwrapped master key has wrong length", nil)
	}
	copy(mk[:], pt)
	return mk, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: constructing aes cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: constructing gcm: %w", err)
	}
	return aead, nil
}

// Sealer performs per-blob AEAD encryption/decryption under one master key.
// Grounded on the teacher's SecretsManager.EncryptSecret/DecryptSecret
// nonce-prepend pattern, generalized with kind+hash associated data so
// ciphertext is bound to its content address.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer constructs a Sealer bound to mk.
func NewSealer(mk MasterKey) (*Sealer, error) {
	aead, err := newGCM(mk[:])
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext for storage as a blob of the given kind with
// content hash id. Output layout: nonce || ciphertext || tag.
func (s *Sealer) Seal(kind ids.Kind, id ids.ID, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating blob nonce: %w", err)
	}
	ad := associatedData(kind, id)
	out := make([]byte, 0, NonceSize+len(plaintext)+TagSize)
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, plaintext, ad)
	return out, nil
}

// Open decrypts a blob sealed by Seal, verifying it was sealed for the
// given kind and content hash, then verifies the plaintext hashes back to
// id (spec §4.2: "decryption must be authenticated before the plaintext
// hash is trusted").
func (s *Sealer) Open(kind ids.Kind, id ids.ID, sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+TagSize {
		return nil, errs.CorruptRepository(fmt.Sprintf("blob %s: ciphertext too short", id.Str()), nil)
	}
	nonce := sealed[:NonceSize]
	ct := sealed[NonceSize:]
	ad := associatedData(kind, id)
	pt, err := s.aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, errs.CorruptRepository(fmt.Sprintf("blob %s: AEAD authentication failed", id.Str()), err)
	}
	if got := ids.Hash(pt); !got.Equal(id) {
		return nil, errs.CorruptRepository(fmt.Sprintf("blob %s: plaintext hash mismatch (got %s)", id.Str(), got.Str()), nil)
	}
	return pt, nil
}

// SealManifest encrypts a pack's manifest, binding it to the pack's
// storage id as associated data (spec §4.2).
func (s *Sealer) SealManifest(packID ids.ID, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating manifest nonce: %w", err)
	}
	out := make([]byte, 0, NonceSize+len(plaintext)+TagSize)
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, plaintext, packID[:])
	return out, nil
}

// OpenManifest decrypts a pack manifest sealed by SealManifest.
func (s *Sealer) OpenManifest(packID ids.ID, sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+TagSize {
		return nil, errs.CorruptRepository(fmt.Sprintf("pack %s: manifest too short", packID.Str()), nil)
	}
	nonce := sealed[:NonceSize]
	ct := sealed[NonceSize:]
	pt, err := s.aead.Open(nil, nonce, ct, packID[:])
	if err != nil {
		return nil, errs.CorruptRepository(fmt.Sprintf("pack %s: manifest AEAD authentication failed", packID.Str()), err)
	}
	return pt, nil
}

func associatedData(kind ids.Kind, id ids.ID) []byte {
	ad := make([]byte, 1+ids.Size)
	ad[0] = byte(kind)
	copy(ad[1:], id[:])
	return ad
}
