// Package vault is the encrypted store for freshly issued secret keys. The
// backend never returns a secret after issuance, so the envelope written
// here is the only durable copy. Envelopes record their cipher version and
// bind the owner key as associated data.
package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"osbridge/pkg/cache"
)

type envelope struct {
	Version string `json:"v"`
	Cipher  string `json:"c"`
	Payload []byte `json:"p"` // nonce || ciphertext+tag
}

type Vault struct {
	store cache.Cache
	reg   *Registry
	log   *zap.SugaredLogger
}

func New(store cache.Cache, reg *Registry, log *zap.SugaredLogger) *Vault {
	return &Vault{store: store, reg: reg, log: log}
}

// OwnerKey identifies an envelope by the credential's owner.
func OwnerKey(userID, accessKey string) string {
	return userID + ":" + accessKey
}

func (v *Vault) key(ownerKey string) string { return "secret:" + ownerKey }

func (v *Vault) Store(ctx context.Context, ownerKey, secret string) error {
	c := v.reg.Current()
	payload, err := c.Seal([]byte(secret), []byte(ownerKey))
	if err != nil {
		return fmt.Errorf("seal secret: %w", err)
	}
	raw, err := json.Marshal(envelope{Version: c.ID(), Cipher: c.Name(), Payload: payload})
	if err != nil {
		return err
	}
	return v.store.Set(ctx, v.key(ownerKey), raw)
}

// Retrieve returns the secret and whether an envelope was present. A
// present envelope that fails to decrypt (wrong owner key, corruption,
// unknown cipher version) is a hard error, never a silent absent.
func (v *Vault) Retrieve(ctx context.Context, ownerKey string) (string, bool, error) {
	raw, ok, err := v.store.Get(ctx, v.key(ownerKey))
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", false, fmt.Errorf("corrupt envelope for %s: %w", ownerKey, err)
	}
	c, ok := v.reg.ByID(env.Version)
	if !ok {
		return "", false, fmt.Errorf("no cipher registered for version %q", env.Version)
	}
	plain, err := c.Open(env.Payload, []byte(ownerKey))
	if err != nil {
		return "", false, fmt.Errorf("open envelope for %s: %w", ownerKey, err)
	}
	return string(plain), true, nil
}

func (v *Vault) Delete(ctx context.Context, ownerKey string) error {
	return v.store.Delete(ctx, v.key(ownerKey))
}
