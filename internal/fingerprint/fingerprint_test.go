package fingerprint

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// bech32Charset is the data alphabet used after the "1" separator.
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex in test vector: %v", err)
	}
	return b
}

// TestGenerateCIP14Vectors checks fingerprints against the published CIP-14
// test vectors.
func TestGenerateCIP14Vectors(t *testing.T) {
	tests := []struct {
		name      string
		policyID  string
		assetName string
		want      string
	}{
		{
			name:      "empty asset name",
			policyID:  "7eae28af2208be856f7a119668ae52a49b73725e326dc16579dcc373",
			assetName: "",
			want:      "asset1rjklcrnsdzqp65wjgrg55sy9723kw09mlgvlc3",
		},
		{
			name:      "empty asset name, third policy",
			policyID:  "1e349c9bdea19fd6c147626a5260bc44b71635f398b67c59881df209",
			assetName: "",
			want:      "asset1uyuxku60yqe57nusqzjx38aan3f2wq6s93f6ea",
		},
		{
			name:      "PATATE under first policy",
			policyID:  "7eae28af2208be856f7a119668ae52a49b73725e326dc16579dcc373",
			assetName: "504154415445",
			want:      "asset13n25uv0yaf5kus35fm2k86cqy60z58d9xmde92",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(mustHex(t, tt.policyID), mustHex(t, tt.assetName))
			if got != tt.want {
				t.Errorf("Generate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGenerateStrict(t *testing.T) {
	validPolicy := bytes.Repeat([]byte{0xab}, PolicyIDLength)

	t.Run("valid inputs", func(t *testing.T) {
		fp, err := GenerateStrict(validPolicy, []byte("token"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fp != Generate(validPolicy, []byte("token")) {
			t.Error("strict and total forms disagree on valid input")
		}
	})

	t.Run("short policy ID", func(t *testing.T) {
		_, err := GenerateStrict([]byte{0x01, 0x02}, nil)
		if !errors.Is(err, ErrPolicyLength) {
			t.Errorf("expected ErrPolicyLength, got %v", err)
		}
	})

	t.Run("oversized asset name", func(t *testing.T) {
		_, err := GenerateStrict(validPolicy, bytes.Repeat([]byte{0x00}, MaxAssetNameLength+1))
		if !errors.Is(err, ErrNameLength) {
			t.Errorf("expected ErrNameLength, got %v", err)
		}
	})

	t.Run("empty asset name is valid", func(t *testing.T) {
		if _, err := GenerateStrict(validPolicy, nil); err != nil {
			t.Errorf("empty asset name should be valid, got %v", err)
		}
	})
}

// Property: for any byte inputs, computing the fingerprint twice produces
// identical results (the function is pure).
func TestGenerateDeterminism_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs produce same fingerprint", prop.ForAll(
		func(policy, name []byte) bool {
			return Generate(policy, name) == Generate(policy, name)
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// Property: every fingerprint starts with "asset1" and uses only the bech32
// data charset after the separator. The 20-byte digest fixes the total
// length at 44 characters regardless of input length.
func TestGenerateFormat_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("fingerprints are well-formed bech32", prop.ForAll(
		func(policy, name []byte) bool {
			fp := Generate(policy, name)
			if !strings.HasPrefix(fp, HumanReadablePart+"1") {
				return false
			}
			if len(fp) != 44 {
				return false
			}
			for _, c := range fp[len(HumanReadablePart)+1:] {
				if !strings.ContainsRune(bech32Charset, c) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// TestGenerateSensitivity checks that distinct asset names under one policy
// produce distinct fingerprints for concrete sample pairs.
func TestGenerateSensitivity(t *testing.T) {
	policy := mustHex(t, "7eae28af2208be856f7a119668ae52a49b73725e326dc16579dcc373")

	names := [][]byte{
		nil,
		[]byte("a"),
		[]byte("b"),
		[]byte("aa"),
		[]byte("TOKEN"),
		[]byte("token"),
		{0x00},
		{0x00, 0x00},
	}

	seen := make(map[string][]byte)
	for _, name := range names {
		fp := Generate(policy, name)
		if prev, ok := seen[fp]; ok {
			t.Errorf("collision: name %x and %x both map to %s", prev, name, fp)
		}
		seen[fp] = name
	}
}
