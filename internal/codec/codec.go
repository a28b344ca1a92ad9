// Package codec serializes domain objects to encrypted-record envelopes and
// back, given a live data key. It owns the shape of an encrypted record but
// does no I/O.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/crypto"
	"github.com/and161185/shopvault/internal/model"
)

// Seal marshals v to JSON and encrypts it under key, producing the envelope
// stored in the records table. The envelope duplicates id/shopId outside the
// ciphertext for index-based retrieval before decryption.
func Seal(v any, id, shopID uuid.UUID, key []byte) (model.EncryptedRecord, error) {
	pt, err := json.Marshal(v)
	if err != nil {
		return model.EncryptedRecord{}, fmt.Errorf("codec seal: %w", err)
	}
	ct, err := crypto.Encrypt(pt, key)
	if err != nil {
		return model.EncryptedRecord{}, fmt.Errorf("codec seal: %w", err)
	}
	return model.EncryptedRecord{ID: id, ShopID: shopID, Ciphertext: ct}, nil
}

// Open decrypts an envelope and unmarshals the plaintext into T. Wrong key
// or tampered ciphertext surfaces as errs.ErrIntegrity via crypto.Decrypt.
func Open[T any](rec model.EncryptedRecord, key []byte) (T, error) {
	var out T
	pt, err := crypto.Decrypt(rec.Ciphertext, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(pt, &out); err != nil {
		return out, fmt.Errorf("codec open: %w", err)
	}
	return out, nil
}
