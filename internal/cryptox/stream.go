// Package cryptox implements the client-side encryption scheme. Every file
// is encrypted with its own random key using chunked XChaCha20-Poly1305,
// and the file key is sealed with the account master key. The server only
// ever sees ciphertext and the sealed key.
package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the length of master and per-file keys in bytes.
	KeySize = chacha20poly1305.KeySize

	// DefaultChunkSize is the plaintext chunk size for streaming
	// encryption. Files are processed in chunks of this size so arbitrarily
	// large files never have to fit in memory.
	DefaultChunkSize = 4 << 20

	// The stream nonce is a random prefix plus a little-endian chunk
	// counter filling the rest of the XChaCha20 nonce.
	noncePrefixSize = chacha20poly1305.NonceSizeX - 8
)

// ErrTruncated reports a ciphertext stream that ended before its final
// chunk. Every encrypted stream carries a final chunk, possibly empty.
var ErrTruncated = errors.New("ciphertext truncated")

// Chunk tags are bound into the AEAD as associated data so chunks cannot
// be reordered or the stream cut short without detection.
var (
	tagMore  = []byte{0}
	tagFinal = []byte{1}
)

// Header carries everything needed to decrypt a file except the master key.
// Both fields are base64 and safe to store or send as-is.
type Header struct {
	// EncryptedKey is the per-file key sealed with the master key,
	// encoded as nonce followed by ciphertext.
	EncryptedKey string `json:"encryptedKey"`
	// DecryptionHeader is the random nonce prefix of the chunk stream.
	DecryptionHeader string `json:"decryptionHeader"`
}

// NewKey returns a fresh random key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// DeriveKey derives a master key from a passphrase and salt using Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// StreamEncryptor encrypts and decrypts file streams under a master key.
// It is safe for concurrent use.
type StreamEncryptor struct {
	master cipher.AEAD

	// ChunkSize overrides DefaultChunkSize when positive. Streams must be
	// decrypted with the same chunk size they were encrypted with.
	ChunkSize int
}

// NewStreamEncryptor returns a StreamEncryptor sealing file keys with
// masterKey, which must be KeySize bytes.
func NewStreamEncryptor(masterKey []byte) (*StreamEncryptor, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	master, err := chacha20poly1305.NewX(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init master cipher: %w", err)
	}
	return &StreamEncryptor{master: master}, nil
}

func (e *StreamEncryptor) chunkSize() int {
	if e.ChunkSize > 0 {
		return e.ChunkSize
	}
	return DefaultChunkSize
}

// Encrypt reads plaintext from src, writes the encrypted stream to dst and
// returns the header needed to decrypt it. A fresh file key is generated
// per call.
func (e *StreamEncryptor) Encrypt(dst io.Writer, src io.Reader) (*Header, error) {
	fileKey, err := NewKey()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(fileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init file cipher: %w", err)
	}

	prefix := make([]byte, noncePrefixSize)
	if _, err := rand.Read(prefix); err != nil {
		return nil, fmt.Errorf("failed to generate nonce prefix: %w", err)
	}

	buf := make([]byte, e.chunkSize())
	var counter uint64
	for {
		n, err := io.ReadFull(src, buf)
		switch {
		case err == nil:
			// Full chunk, more to come.
			if err := writeChunk(dst, aead, prefix, counter, buf[:n], tagMore); err != nil {
				return nil, err
			}
			counter++
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			// Final chunk. Always written, even when empty, so that
			// truncation of the stream is detectable.
			if err := writeChunk(dst, aead, prefix, counter, buf[:n], tagFinal); err != nil {
				return nil, err
			}
			return e.sealHeader(fileKey, prefix)
		default:
			return nil, fmt.Errorf("failed to read plaintext: %w", err)
		}
	}
}

// Decrypt reads the encrypted stream from src and writes the plaintext to
// dst. It fails on any tampered, reordered or truncated chunk.
func (e *StreamEncryptor) Decrypt(dst io.Writer, src io.Reader, h *Header) error {
	fileKey, err := e.openFileKey(h)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(fileKey)
	if err != nil {
		return fmt.Errorf("failed to init file cipher: %w", err)
	}
	prefix, err := base64.StdEncoding.DecodeString(h.DecryptionHeader)
	if err != nil {
		return fmt.Errorf("failed to decode decryption header: %w", err)
	}
	if len(prefix) != noncePrefixSize {
		return fmt.Errorf("decryption header must be %d bytes, got %d", noncePrefixSize, len(prefix))
	}

	buf := make([]byte, e.chunkSize()+aead.Overhead())
	var counter uint64
	for {
		n, err := io.ReadFull(src, buf)
		switch {
		case err == nil:
			// Full-size chunk, not the last one.
			if err := openChunk(dst, aead, prefix, counter, buf[:n], tagMore); err != nil {
				return err
			}
			counter++
		case errors.Is(err, io.ErrUnexpectedEOF):
			if n < aead.Overhead() {
				return ErrTruncated
			}
			return openChunk(dst, aead, prefix, counter, buf[:n], tagFinal)
		case errors.Is(err, io.EOF):
			return ErrTruncated
		default:
			return fmt.Errorf("failed to read ciphertext: %w", err)
		}
	}
}

func (e *StreamEncryptor) sealHeader(fileKey, prefix []byte) (*Header, error) {
	keyNonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(keyNonce); err != nil {
		return nil, fmt.Errorf("failed to generate key nonce: %w", err)
	}
	sealed := e.master.Seal(keyNonce, keyNonce, fileKey, nil)
	return &Header{
		EncryptedKey:     base64.StdEncoding.EncodeToString(sealed),
		DecryptionHeader: base64.StdEncoding.EncodeToString(prefix),
	}, nil
}

func (e *StreamEncryptor) openFileKey(h *Header) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(h.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted key: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("encrypted key too short: %d bytes", len(raw))
	}
	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	fileKey, err := e.master.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal file key: %w", err)
	}
	return fileKey, nil
}

func writeChunk(dst io.Writer, aead cipher.AEAD, prefix []byte, counter uint64, plaintext, tag []byte) error {
	sealed := aead.Seal(nil, chunkNonce(prefix, counter), plaintext, tag)
	if _, err := dst.Write(sealed); err != nil {
		return fmt.Errorf("failed to write chunk %d: %w", counter, err)
	}
	return nil
}

func openChunk(dst io.Writer, aead cipher.AEAD, prefix []byte, counter uint64, sealed, tag []byte) error {
	plaintext, err := aead.Open(nil, chunkNonce(prefix, counter), sealed, tag)
	if err != nil {
		return fmt.Errorf("failed to decrypt chunk %d: %w", counter, err)
	}
	if _, err := dst.Write(plaintext); err != nil {
		return fmt.Errorf("failed to write chunk %d: %w", counter, err)
	}
	return nil
}

func chunkNonce(prefix []byte, counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	copy(nonce, prefix)
	binary.LittleEndian.PutUint64(nonce[noncePrefixSize:], counter)
	return nonce
}
