package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/strata/pkg/crypto"
	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

func encodeWrappedKey(wk *crypto.WrappedKey) ([]byte, error) {
	data, err := json.Marshal(wk)
	if err != nil {
		return nil, fmt.Errorf("repository: encoding key object: %w", err)
	}
	return data, nil
}

func decodeWrappedKey(data []byte) (*crypto.WrappedKey, error) {
	var wk crypto.WrappedKey
	if err := json.Unmarshal(data, &wk); err != nil {
		return nil, errs.CorruptRepository("decoding key object", err)
	}
	return &wk, nil
}

// searchKey tries password against every key object in the repository
// (spec §4.2: "unlocking the repository means finding a key object that
// successfully unwraps with the user's passphrase" — multiple key objects
// may exist for multiple passphrases, spec §3).
func searchKey(ctx context.Context, be interface {
	List(context.Context, ids.Kind) ([]ids.ID, error)
	Get(context.Context, ids.Kind, ids.ID, int64, int64) ([]byte, error)
}, password []byte) (crypto.MasterKey, error) {
	keyIDs, err := be.List(ctx, ids.KindKey)
	if err != nil {
		return crypto.MasterKey{}, fmt.Errorf("repository: listing key objects: %w", err)
	}
	if len(keyIDs) == 0 {
		return crypto.MasterKey{}, errs.CorruptRepository("repository has no key objects", nil)
	}

	var lastErr error
	for _, keyID := range keyIDs {
		data, err := be.Get(ctx, ids.KindKey, keyID, 0, -1)
		if err != nil {
			lastErr = err
			continue
		}
		wk, err := decodeWrappedKey(data)
		if err != nil {
			lastErr = err
			continue
		}
		mk, err := wk.Unwrap(password)
		if err == nil {
			return mk, nil
		}
		lastErr = err
	}
	return crypto.MasterKey{}, errs.BadPassword("no key object unwrapped with the given password", lastErr)
}

// AddKey wraps the repository's master key under a new passphrase,
// allowing multiple independent credentials (spec §3, SPEC_FULL "key
// add/remove/list").
func (r *Repository) AddKey(ctx context.Context, password []byte) (ids.ID, error) {
	mk, err := r.masterKeyForRewrap()
	if err != nil {
		return ids.ID{}, err
	}
	wrapped, err := crypto.Wrap(mk, password)
	if err != nil {
		return ids.ID{}, err
	}
	data, err := encodeWrappedKey(wrapped)
	if err != nil {
		return ids.ID{}, err
	}
	keyID := ids.Hash(data)
	if err := r.be.Put(ctx, ids.KindKey, keyID, data); err != nil {
		return ids.ID{}, err
	}
	return keyID, nil
}

// RemoveKey deletes a key object. The repository refuses to remove the
// last remaining key, which would make the repository permanently
// unopenable.
func (r *Repository) RemoveKey(ctx context.Context, keyID ids.ID) error {
	all, err := r.ListKeys(ctx)
	if err != nil {
		return err
	}
	if len(all) <= 1 {
		return errs.Input("refusing to remove the last key object", nil)
	}
	return r.be.Remove(ctx, ids.KindKey, keyID)
}

// ListKeys returns every key object id.
func (r *Repository) ListKeys(ctx context.Context) ([]ids.ID, error) {
	return r.be.List(ctx, ids.KindKey)
}

// masterKeyForRewrap recovers the Sealer's underlying key bytes so AddKey
// can wrap the same master key under a different passphrase. The Sealer
// does not expose its AEAD key directly; repository keeps its own copy
// from Open/Init for this purpose instead of re-deriving it.
func (r *Repository) masterKeyForRewrap() (crypto.MasterKey, error) {
	if r.masterKey == nil {
		return crypto.MasterKey{}, errs.Fatal("master key unavailable for rewrap", nil)
	}
	return *r.masterKey, nil
}
