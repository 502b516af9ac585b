// Suffix array for substring search over concatenated message text.
// Built in memory per search session; never persisted.
package dsa

import (
	"sort"
)

// SuffixArray supports O(m log n) substring search where m is the pattern
// length and n the text length. The CLI builds one over the flattened
// message text of all loaded conversations to answer content searches
// without any on-disk index.
type SuffixArray struct {
	Text string // Original text
	SA   []int  // SA[i] = start position of the i-th smallest suffix
	rank []int  // build-time ranks
}

// BuildSuffixArray constructs a suffix array using prefix doubling.
// Time Complexity: O(n log^2 n), Space Complexity: O(n).
func BuildSuffixArray(text string) *SuffixArray {
	n := len(text)
	if n == 0 {
		return &SuffixArray{Text: text, SA: []int{}}
	}

	sa := &SuffixArray{
		Text: text,
		SA:   make([]int, n),
		rank: make([]int, n),
	}

	for i := 0; i < n; i++ {
		sa.SA[i] = i
		sa.rank[i] = int(text[i])
	}

	tmpRank := make([]int, n)
	for k := 1; k < n; k *= 2 {
		// Sort by (rank[i], rank[i+k]) pairs
		sort.Slice(sa.SA, func(i, j int) bool {
			if sa.rank[sa.SA[i]] != sa.rank[sa.SA[j]] {
				return sa.rank[sa.SA[i]] < sa.rank[sa.SA[j]]
			}
			ri := -1
			if sa.SA[i]+k < n {
				ri = sa.rank[sa.SA[i]+k]
			}
			rj := -1
			if sa.SA[j]+k < n {
				rj = sa.rank[sa.SA[j]+k]
			}
			return ri < rj
		})

		tmpRank[sa.SA[0]] = 0
		for i := 1; i < n; i++ {
			tmpRank[sa.SA[i]] = tmpRank[sa.SA[i-1]]

			prev, curr := sa.SA[i-1], sa.SA[i]
			if sa.rank[prev] != sa.rank[curr] {
				tmpRank[sa.SA[i]]++
			} else {
				rPrev := -1
				if prev+k < n {
					rPrev = sa.rank[prev+k]
				}
				rCurr := -1
				if curr+k < n {
					rCurr = sa.rank[curr+k]
				}
				if rPrev != rCurr {
					tmpRank[sa.SA[i]]++
				}
			}
		}

		copy(sa.rank, tmpRank)

		// All ranks unique means fully sorted
		if sa.rank[sa.SA[n-1]] == n-1 {
			break
		}
	}

	return sa
}

// Search returns the sorted start positions of every occurrence of pattern.
// Time Complexity: O(m log n).
func (sa *SuffixArray) Search(pattern string) []int {
	if len(pattern) == 0 || len(sa.SA) == 0 {
		return []int{}
	}

	n := len(sa.SA)
	m := len(pattern)

	left := sort.Search(n, func(i int) bool {
		suffix := sa.Text[sa.SA[i]:]
		if len(suffix) < m {
			return suffix >= pattern[:len(suffix)]
		}
		return suffix[:m] >= pattern
	})

	right := sort.Search(n, func(i int) bool {
		suffix := sa.Text[sa.SA[i]:]
		if len(suffix) < m {
			return suffix > pattern[:len(suffix)]
		}
		return suffix[:m] > pattern
	})

	var matches []int
	for i := left; i < right; i++ {
		pos := sa.SA[i]
		if pos+m <= len(sa.Text) && sa.Text[pos:pos+m] == pattern {
			matches = append(matches, pos)
		}
	}

	sort.Ints(matches)
	return matches
}

// Count returns the number of occurrences of pattern.
func (sa *SuffixArray) Count(pattern string) int {
	return len(sa.Search(pattern))
}
