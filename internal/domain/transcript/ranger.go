// Package transcript computes the public/private byte-range partition of a
// TLS transcript given a set of secret substrings, the byte-level
// counterpart to the header/body selector resolution done in redact.
package transcript

import (
	"bytes"
	"sort"
)

// Range is a half-open byte interval [Start, End) into a transcript.
type Range struct {
	Start int
	End   int
}

// Len returns End - Start.
func (r Range) Len() int { return r.End - r.Start }

// Ranges computes the private (secret-covering) and public (complement)
// ranges of t given the secret byte strings in secrets.
//
// private contains every occurrence of every secret, found by naive
// sliding-window search; overlapping occurrences are all recorded, sorted
// by start. public is the complement of the *union* of private ranges
// within [0, len(t)), so no public byte coincides with any private byte
// even when private ranges themselves overlap.
func Ranges(t []byte, secrets [][]byte) (public, private []Range) {
	for _, s := range secrets {
		if len(s) == 0 {
			continue
		}
		for start := 0; start+len(s) <= len(t); start++ {
			if bytes.Equal(t[start:start+len(s)], s) {
				private = append(private, Range{Start: start, End: start + len(s)})
			}
		}
	}

	sort.Slice(private, func(i, j int) bool {
		if private[i].Start != private[j].Start {
			return private[i].Start < private[j].Start
		}
		return private[i].End < private[j].End
	})

	covered := mergeRanges(private)

	if len(t) == 0 {
		return nil, private
	}

	cursor := 0
	for _, c := range covered {
		if cursor < c.Start {
			public = append(public, Range{Start: cursor, End: c.Start})
		}
		if c.End > cursor {
			cursor = c.End
		}
	}
	if cursor < len(t) {
		public = append(public, Range{Start: cursor, End: len(t)})
	}

	return public, private
}

// mergeRanges coalesces overlapping or adjacent ranges in sorted order,
// used only to compute the public complement — the returned private slice
// from Ranges keeps every individual, possibly-overlapping occurrence.
func mergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	merged := []Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
