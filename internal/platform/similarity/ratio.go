// Package similarity scores how alike two free-text names are.
package similarity

import (
	"fmt"
	"strings"
)

// autojunkMinLen mirrors the popularity heuristic of Python's difflib: it
// only applies to sequences of 200 elements or more.
const autojunkMinLen = 200

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]:
// 2*M / T, where M is the number of characters in matching blocks and T the
// combined length. Inputs are lower-cased and trimmed first. Two empty
// strings are identical.
//
// Time complexity: O(len(a) * len(b)) in the worst case.
func Ratio(a, b string) float64 {
	ra := []rune(strings.ToLower(strings.TrimSpace(a)))
	rb := []rune(strings.ToLower(strings.TrimSpace(b)))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	return 2.0 * float64(newMatcher(ra, rb).matchingCharacters()) / float64(total)
}

// RatioOf coerces arbitrary values to their string form before scoring.
// nil becomes the empty string.
func RatioOf(a, b any) float64 {
	return Ratio(toString(a), toString(b))
}

func toString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

type matcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newMatcher(a, b []rune) *matcher {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	if n := len(b); n >= autojunkMinLen {
		popular := n/100 + 1
		for r, positions := range b2j {
			if len(positions) > popular {
				delete(b2j, r)
			}
		}
	}

	return &matcher{a: a, b: b, b2j: b2j}
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingCharacters sums the sizes of all matching blocks found by
// recursively taking the longest common block and recursing on both sides.
func (m *matcher) matchingCharacters() int {
	total := 0
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// bounds. Ties resolve to the earliest i, then the earliest j.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) (int, int, int) {
	besti, bestj, bestk := alo, blo, 0

	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// Popular runes dropped by autojunk can still extend a block.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestk = besti-1, bestj-1, bestk+1
	}
	for besti+bestk < ahi && bestj+bestk < bhi && m.a[besti+bestk] == m.b[bestj+bestk] {
		bestk++
	}

	return besti, bestj, bestk
}
