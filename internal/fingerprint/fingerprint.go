// Package fingerprint computes CIP-14 asset fingerprints.
// A fingerprint is a deterministic bech32 identifier for a Cardano native
// asset, derived from its minting policy ID and asset name. It provides a
// stable, human-readable handle for "which asset is this" the same way an
// execution ID identifies "what exactly ran".
package fingerprint

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// HumanReadablePart is the bech32 prefix for asset fingerprints per CIP-14.
const HumanReadablePart = "asset"

// PolicyIDLength is the canonical length of a Cardano policy ID in bytes.
const PolicyIDLength = 28

// MaxAssetNameLength is the maximum on-chain asset name length in bytes.
const MaxAssetNameLength = 32

// digestSize is the blake2b output size mandated by CIP-14 (160 bits).
const digestSize = 20

// ErrPolicyLength is returned by GenerateStrict for a non-28-byte policy ID.
var ErrPolicyLength = errors.New("policy ID must be exactly 28 bytes")

// ErrNameLength is returned by GenerateStrict for an asset name over 32 bytes.
var ErrNameLength = errors.New("asset name must be at most 32 bytes")

// Generate computes the CIP-14 fingerprint for an asset.
// It hashes policyID||assetName with a 160-bit blake2b digest and encodes
// the digest as a lowercase bech32 string with the "asset" prefix.
//
// Generate is a total function: it accepts byte strings of any length and
// performs no normalization. Callers that want canonical Cardano inputs
// enforced should use GenerateStrict.
func Generate(policyID, assetName []byte) string {
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		// blake2b.New only fails for an invalid key; ours is nil.
		panic(fmt.Sprintf("fingerprint: blake2b init: %v", err))
	}
	h.Write(policyID)
	h.Write(assetName)
	digest := h.Sum(nil)

	return encodeBech32(digest)
}

// GenerateStrict computes the CIP-14 fingerprint after validating input
// lengths against the canonical Cardano constraints.
func GenerateStrict(policyID, assetName []byte) (string, error) {
	if len(policyID) != PolicyIDLength {
		return "", fmt.Errorf("%w, got %d", ErrPolicyLength, len(policyID))
	}
	if len(assetName) > MaxAssetNameLength {
		return "", fmt.Errorf("%w, got %d", ErrNameLength, len(assetName))
	}
	return Generate(policyID, assetName), nil
}

// encodeBech32 re-groups the digest into 5-bit words and bech32-encodes it.
func encodeBech32(digest []byte) string {
	words, err := bech32.ConvertBits(digest, 8, 5, true)
	if err != nil {
		// ConvertBits with pad=true cannot fail for an 8-to-5 regroup.
		panic(fmt.Sprintf("fingerprint: convert bits: %v", err))
	}
	encoded, err := bech32.Encode(HumanReadablePart, words)
	if err != nil {
		// Encode only fails for an invalid HRP or out-of-range words.
		panic(fmt.Sprintf("fingerprint: bech32 encode: %v", err))
	}
	return encoded
}
