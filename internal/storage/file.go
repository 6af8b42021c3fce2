package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// fileState is the on-disk layout of session.json
type fileState struct {
	Salt   string            `json:"salt,omitempty"` // Base64, present when sealed
	Values map[string]string `json:"values"`
}

// FileStore keeps values in a JSON file readable only by the owner.
// The file is re-read on every call so concurrent CLI invocations see
// each other's writes.
type FileStore struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

// NewFileStore creates a store at path. A non-empty passphrase seals values.
func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: passphrase}
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() (*fileState, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &fileState{Values: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	st := &fileState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if st.Values == nil {
		st.Values = map[string]string{}
	}
	return st, nil
}

func (f *FileStore) save(st *fileState) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}

const (
	keySize          = 32 // AES-256
	nonceSize        = 12
	saltSize         = 16
	pbkdf2Iterations = 100000
)

// ErrSealed means a sealed value could not be opened with the configured passphrase
var ErrSealed = errors.New("storage: decryption failed: wrong passphrase or corrupted data")

// valueCodec turns stored values into what is written to session.json
type valueCodec interface {
	encode(v string) (string, error)
	decode(v string) (string, error)
}

type plainCodec struct{}

func (plainCodec) encode(v string) (string, error) { return v, nil }
func (plainCodec) decode(v string) (string, error) { return v, nil }

// sealedCodec stores base64(nonce || AES-256-GCM ciphertext) under a
// key derived from the passphrase and the file's salt
type sealedCodec struct {
	aead cipher.AEAD
}

func newSealedCodec(passphrase string, salt []byte) (sealedCodec, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return sealedCodec{}, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return sealedCodec{}, err
	}
	return sealedCodec{aead: aead}, nil
}

func (c sealedCodec) encode(v string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(c.aead.Seal(nonce, nonce, []byte(v), nil)), nil
}

func (c sealedCodec) decode(v string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(v)
	if err != nil || len(data) < nonceSize {
		return "", ErrSealed
	}
	plain, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrSealed
	}
	return string(plain), nil
}

// codec picks how values in st are encoded. With create set, an unsealed
// file gets a fresh salt and every value already in it is sealed, so the
// file is never part plain and part sealed.
func (f *FileStore) codec(st *fileState, create bool) (valueCodec, error) {
	if f.passphrase == "" || (st.Salt == "" && !create) {
		return plainCodec{}, nil
	}

	if st.Salt != "" {
		salt, err := base64.StdEncoding.DecodeString(st.Salt)
		if err != nil {
			return nil, fmt.Errorf("invalid salt in session file: %w", err)
		}
		return newSealedCodec(f.passphrase, salt)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	c, err := newSealedCodec(f.passphrase, salt)
	if err != nil {
		return nil, err
	}
	for k, v := range st.Values {
		sealed, err := c.encode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to seal %s: %w", k, err)
		}
		st.Values[k] = sealed
	}
	st.Salt = base64.StdEncoding.EncodeToString(salt)
	return c, nil
}

// Get returns the value for key
func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := st.Values[key]
	if !ok {
		return "", ErrNotFound
	}
	if st.Salt != "" && f.passphrase == "" {
		return "", fmt.Errorf("session file is sealed, set STOCKDASH_STORE_PASSPHRASE: %w", ErrSealed)
	}

	c, err := f.codec(st, false)
	if err != nil {
		return "", err
	}
	return c.decode(v)
}

// Apply writes the batch with a single file replacement
func (f *FileStore) Apply(_ context.Context, b Batch) error {
	if b.Empty() {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return err
	}
	if st.Salt != "" && f.passphrase == "" && len(b.Set) > 0 {
		return fmt.Errorf("session file is sealed, set STOCKDASH_STORE_PASSPHRASE: %w", ErrSealed)
	}

	for _, k := range b.Unset {
		delete(st.Values, k)
	}
	c, err := f.codec(st, len(b.Set) > 0)
	if err != nil {
		return err
	}

	for _, k := range b.keys() {
		v, err := c.encode(b.Set[k])
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", k, err)
		}
		st.Values[k] = v
	}

	if len(st.Values) == 0 {
		st.Salt = ""
	}
	return f.save(st)
}

// Close is a no-op
func (f *FileStore) Close() error { return nil }
