package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const nameAESGCM = "AES256-GCM"

// Cipher seals and opens secrets under one key version. aad binds the
// ciphertext to its owner; opening with different aad must fail.
type Cipher interface {
	ID() string
	Name() string
	Seal(plain, aad []byte) ([]byte, error)
	Open(blob, aad []byte) ([]byte, error)
}

type aesGCM struct {
	id  string
	key []byte
}

func NewAESGCM(id string, key []byte) (Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cipher %s: key must be 32 bytes, got %d", id, len(key))
	}
	return &aesGCM{id: id, key: key}, nil
}

func (c *aesGCM) ID() string   { return c.id }
func (c *aesGCM) Name() string { return nameAESGCM }

func (c *aesGCM) Seal(plain, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, aad), nil
}

func (c *aesGCM) Open(blob, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(blob) < gcm.NonceSize() {
		return nil, errors.New("envelope too short")
	}
	return gcm.Open(nil, blob[:gcm.NonceSize()], blob[gcm.NonceSize():], aad)
}

// Registry holds every valid cipher version. Sealing always uses the
// current entry; opening looks up the version recorded in the envelope, so
// keys can rotate without re-encrypting old entries.
type Registry struct {
	current Cipher
	byID    map[string]Cipher
}

func NewRegistry(current Cipher, others ...Cipher) *Registry {
	r := &Registry{current: current, byID: map[string]Cipher{current.ID(): current}}
	for _, c := range others {
		r.byID[c.ID()] = c
	}
	return r
}

func (r *Registry) Current() Cipher { return r.current }

func (r *Registry) ByID(id string) (Cipher, bool) {
	c, ok := r.byID[id]
	return c, ok
}

type keyFile struct {
	Current string `yaml:"current"`
	Keys    []struct {
		ID  string `yaml:"id"`
		Key string `yaml:"key"` // base64, 32 bytes
	} `yaml:"keys"`
}

// LoadKeyFile reads a yaml cipher key file:
//
//	current: "2"
//	keys:
//	  - id: "1"
//	    key: <base64>
//	  - id: "2"
//	    key: <base64>
func LoadKeyFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if len(kf.Keys) == 0 {
		return nil, errors.New("key file has no keys")
	}
	var current Cipher
	var others []Cipher
	for _, k := range kf.Keys {
		material, err := base64.StdEncoding.DecodeString(k.Key)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k.ID, err)
		}
		c, err := NewAESGCM(k.ID, material)
		if err != nil {
			return nil, err
		}
		if k.ID == kf.Current {
			current = c
		} else {
			others = append(others, c)
		}
	}
	if current == nil {
		return nil, fmt.Errorf("current key %q not present in key file", kf.Current)
	}
	return NewRegistry(current, others...), nil
}
