package text

import (
	"crypto/md5"
	"encoding/binary"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// ContentSimilarity computes a similarity score between two lines (0.0 to 1.0)
// using the Levenshtein ratio: 1 - (levenshtein_distance / max_length).
// Lengths and distance are counted in runes.
// Two empty lines are identical; an empty line has 0 similarity with a non-empty one.
func ContentSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)

	return 1.0 - float64(dist)/float64(maxLen)
}

// Fingerprint returns the 64-bit SimHash of the whitespace-separated tokens of s.
// Near-duplicate texts produce fingerprints with a small Hamming distance.
// Text without tokens has fingerprint 0.
func Fingerprint(s string) uint64 {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return 0
	}

	var votes [FingerprintBits]int
	for _, token := range tokens {
		h := tokenHash(token)
		for i := 0; i < FingerprintBits; i++ {
			if h>>i&1 == 1 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}

	var fp uint64
	for i, v := range votes {
		if v > 0 {
			fp |= 1 << i
		}
	}
	return fp
}

// tokenHash is the low 64 bits of the token's MD5 digest, read big-endian.
func tokenHash(token string) uint64 {
	sum := md5.Sum([]byte(token))
	return binary.BigEndian.Uint64(sum[8:])
}

// HammingDistance returns the number of differing bits between two fingerprints.
func HammingDistance(h1, h2 uint64) int {
	return bits.OnesCount64(h1 ^ h2)
}

// ContextSimilarity maps the Hamming distance of two fingerprints to [0,1],
// 1.0 meaning identical.
func ContextSimilarity(h1, h2 uint64) float64 {
	return 1.0 - float64(HammingDistance(h1, h2))/FingerprintBits
}
