// Package domhash fingerprints rendered viewer pages so the capture loop
// can verify that a page-advance actually changed what is on screen.
// A SimHash over the markup tolerates the small mutations (timers, visit
// counters) that make exact-equality checks useless on a live viewer.
package domhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// tokenize splits markup into comparable tokens: tag names, attribute
// fragments and text words all count, so both structural and content
// changes move the fingerprint.
func tokenize(html string) []string {
	return strings.FieldsFunc(html, func(r rune) bool {
		switch r {
		case '<', '>', '=', '"', '\'', ' ', '\t', '\n', '\r', '/':
			return true
		}
		return false
	})
}

// Fingerprint computes a 64-bit SimHash of the given markup.
// Uses FNV-64a on markup tokens with bit vector accumulation.
func Fingerprint(html string) uint64 {
	tokens := tokenize(html)
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int

	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}

	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Changed reports whether two fingerprints differ by more than threshold
// bits, i.e. whether the page content meaningfully changed.
func Changed(a, b uint64, threshold int) bool {
	return Distance(a, b) > threshold
}
