package ringoram

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Encryptor is the CryptoUtils collaborator from spec.md §6. It binds
// ciphertexts to the (blockIndex, leaf) pair they were sealed under as
// additional authenticated data, which the plain "encrypt(bytes)" signature
// in the spec doesn't require but which is cheap to add here and stops a
// server from silently swapping a slot's ciphertext with another one it
// recorded earlier from the same bucket.
type Encryptor interface {
	Encrypt(blockIndex, leaf int, plaintext []byte) ([]byte, error)
	Decrypt(blockIndex, leaf int, ciphertext []byte) ([]byte, error)
	// Overhead is the number of extra bytes Encrypt adds beyond len(plaintext).
	Overhead() int
}

// NoOpEncryptor passes data through unchanged. Use only for tests or when
// encryption is handled by a lower storage layer.
type NoOpEncryptor struct{}

func (NoOpEncryptor) Encrypt(blockIndex, leaf int, plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

func (NoOpEncryptor) Decrypt(blockIndex, leaf int, ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return out, nil
}

func (NoOpEncryptor) Overhead() int { return 0 }

const aesCBCKeySize = 16 // spec.md §6: "constructed from a 16-byte key"

// AESCBCEncryptor is the default Encryptor: AES-128-CBC with a random IV,
// authenticated with an HMAC-SHA256 tag over IV||ciphertext (encrypt-then-MAC).
// Both the IV (16 bytes) and the tag (32 bytes) are multiples of the cipher's
// 16-byte block size, so for any plaintext whose length is itself a multiple
// of 16 (Config.Validate enforces this for BlockSize), the wire format
// out = IV || ciphertext || tag is a multiple of 16 as spec.md §6 requires,
// and Decrypt rejects any input that isn't.
type AESCBCEncryptor struct {
	encKey []byte
	macKey []byte
}

// NewAESCBCEncryptor derives independent encryption and MAC subkeys from a
// single 16-byte master key via HKDF-SHA256, so the public constructor
// matches spec.md's "constructed from a 16-byte key" while still giving the
// MAC its own key as encrypt-then-MAC requires.
func NewAESCBCEncryptor(masterKey []byte) (*AESCBCEncryptor, error) {
	if len(masterKey) != aesCBCKeySize {
		return nil, fmt.Errorf("ringoram: key must be %d bytes, got %d", aesCBCKeySize, len(masterKey))
	}
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte("ringoram-aes-cbc"))
	sub := make([]byte, aesCBCKeySize+32)
	if _, err := io.ReadFull(kdf, sub); err != nil {
		return nil, fmt.Errorf("ringoram: derive subkeys: %w", err)
	}
	return &AESCBCEncryptor{encKey: sub[:aesCBCKeySize], macKey: sub[aesCBCKeySize:]}, nil
}

func (e *AESCBCEncryptor) Encrypt(blockIndex, leaf int, plaintext []byte) ([]byte, error) {
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, ErrEncryptionFailed
	}
	block, err := aes.NewCipher(e.encKey)
	if err != nil {
		return nil, ErrEncryptionFailed
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, ErrEncryptionFailed
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	out := make([]byte, 0, len(iv)+len(ciphertext)+sha256.Size)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, e.tag(blockIndex, leaf, iv, ciphertext)...)
	return out, nil
}

func (e *AESCBCEncryptor) Decrypt(blockIndex, leaf int, data []byte) ([]byte, error) {
	if len(data)%16 != 0 || len(data) < aes.BlockSize+sha256.Size {
		return nil, ErrDecryptionFailed
	}
	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize : len(data)-sha256.Size]
	tag := data[len(data)-sha256.Size:]

	if !hmac.Equal(tag, e.tag(blockIndex, leaf, iv, ciphertext)) {
		return nil, ErrDecryptionFailed
	}
	block, err := aes.NewCipher(e.encKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

func (e *AESCBCEncryptor) Overhead() int {
	return aes.BlockSize + sha256.Size
}

func (e *AESCBCEncryptor) tag(blockIndex, leaf int, iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, e.macKey)
	mac.Write(makeAAD(blockIndex, leaf))
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

// ChaCha20Poly1305Encryptor is an alternate Encryptor for deployments that
// prefer a stream cipher over AES, e.g. when hardware AES-NI isn't
// available. It derives a fresh 32-byte key from the master secret exactly
// once at construction (golang.org/x/crypto/hkdf, golang.org/x/crypto's
// AEAD), and a random 12-byte nonce per call.
type ChaCha20Poly1305Encryptor struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305Encryptor derives a 32-byte AEAD key from masterKey via
// HKDF-SHA256, accepting the same 16-byte master key shape as
// NewAESCBCEncryptor.
func NewChaCha20Poly1305Encryptor(masterKey []byte) (*ChaCha20Poly1305Encryptor, error) {
	if len(masterKey) != aesCBCKeySize {
		return nil, fmt.Errorf("ringoram: key must be %d bytes, got %d", aesCBCKeySize, len(masterKey))
	}
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte("ringoram-chacha20poly1305"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("ringoram: derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("ringoram: create AEAD: %w", err)
	}
	return &ChaCha20Poly1305Encryptor{aead: aead}, nil
}

func (e *ChaCha20Poly1305Encryptor) Encrypt(blockIndex, leaf int, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, ErrEncryptionFailed
	}
	return e.aead.Seal(nonce, nonce, plaintext, makeAAD(blockIndex, leaf)), nil
}

func (e *ChaCha20Poly1305Encryptor) Decrypt(blockIndex, leaf int, ciphertext []byte) ([]byte, error) {
	ns := e.aead.NonceSize()
	if len(ciphertext) < ns+e.aead.Overhead() {
		return nil, ErrDecryptionFailed
	}
	nonce, ct := ciphertext[:ns], ciphertext[ns:]
	plaintext, err := e.aead.Open(nil, nonce, ct, makeAAD(blockIndex, leaf))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (e *ChaCha20Poly1305Encryptor) Overhead() int {
	return e.aead.NonceSize() + e.aead.Overhead()
}

// makeAAD binds a ciphertext to the (blockIndex, leaf) pair it was sealed
// under.
func makeAAD(blockIndex, leaf int) []byte {
	aad := make([]byte, 16)
	binary.LittleEndian.PutUint64(aad[0:8], uint64(int64(blockIndex)))
	binary.LittleEndian.PutUint64(aad[8:16], uint64(int64(leaf)))
	return aad
}
