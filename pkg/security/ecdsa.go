// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package security

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ECDSASigner signs Data packets with a secp256k1 key, the same curve
// and library bee's pkg/crypto.Signer uses for chunk signatures.
type ECDSASigner struct {
	key *btcec.PrivateKey
}

// NewECDSASigner wraps a secp256k1 private key as a security.Signer.
func NewECDSASigner(key *btcec.PrivateKey) *ECDSASigner {
	return &ECDSASigner{key: key}
}

// GenerateECDSASigner creates a fresh keypair and wraps it, for tests
// and the cmd/svsnode demonstrator.
func GenerateECDSASigner() (*ECDSASigner, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return NewECDSASigner(key), nil
}

func (s *ECDSASigner) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig := ecdsa.Sign(s.key, digest[:])
	return sig.Serialize(), nil
}

// PublicKey returns the signer's public key for distribution to
// validators.
func (s *ECDSASigner) PublicKey() *btcec.PublicKey {
	return s.key.PubKey()
}

// ECDSAValidator checks Data signatures against a known public key.
type ECDSAValidator struct {
	pub *btcec.PublicKey
}

// NewECDSAValidator builds a Validator bound to a public key.
func NewECDSAValidator(pub *btcec.PublicKey) *ECDSAValidator {
	return &ECDSAValidator{pub: pub}
}

func (v *ECDSAValidator) Validate(data, signature []byte) error {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return ErrSignatureFailure
	}
	digest := sha256.Sum256(data)
	if !sig.Verify(digest[:], v.pub) {
		return ErrSignatureFailure
	}
	return nil
}
