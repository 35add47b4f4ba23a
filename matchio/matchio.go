// Package matchio reads and writes match tables and pair lists as text.
//
// A matches file is a sequence of records, one per image pair:
//
//	I J
//	N
//	i_1 j_1
//	...
//	i_N j_N
//
// Pair lists hold one line per anchor, "I J K ...", meaning the pairs
// (I,J), (I,K), ...
package matchio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/patrikhermansson/pairmatch/core"
)

// maxPrealloc caps the capacity reserved from a record's declared match count.
const maxPrealloc = 4096

// maxLine bounds a pair list line; one anchor's partners share a line.
const maxLine = math.MaxInt32

// WriteMatches writes table with pairs in ascending order.
func WriteMatches(w io.Writer, table core.PairwiseMatches) error {
	bw := bufio.NewWriter(w)
	for _, p := range core.PairsOf(table).Sorted() {
		matches := table[p]
		fmt.Fprintf(bw, "%d %d\n%d\n", p.First, p.Second, len(matches))
		for _, m := range matches {
			fmt.Fprintf(bw, "%d %d\n", m.I, m.J)
		}
	}
	return bw.Flush()
}

// ReadMatches parses a matches file.
func ReadMatches(r io.Reader) (core.PairwiseMatches, error) {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	next := func(what string) (uint64, error) {
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("unexpected end of input reading %s", what)
		}
		v, err := strconv.ParseUint(s.Text(), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", what, err)
		}
		return v, nil
	}

	table := make(core.PairwiseMatches)
	for s.Scan() {
		first, err := strconv.ParseUint(s.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("pair: %w", err)
		}
		second, err := next("pair")
		if err != nil {
			return nil, err
		}
		pair := core.Pair{First: core.ImageIndex(first), Second: core.ImageIndex(second)}
		if _, dup := table[pair]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", core.ErrInvalidPair, pair)
		}
		n, err := next("match count")
		if err != nil {
			return nil, err
		}
		matches := make([]core.Match, 0, min(n, maxPrealloc))
		for k := uint64(0); k < n; k++ {
			i, err := next("match")
			if err != nil {
				return nil, err
			}
			j, err := next("match")
			if err != nil {
				return nil, err
			}
			matches = append(matches, core.Match{I: int(i), J: int(j)})
		}
		if n > 0 {
			table[pair] = matches
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// WritePairs writes pairs grouped by their First image.
func WritePairs(w io.Writer, pairs core.PairSet) error {
	bw := bufio.NewWriter(w)
	sorted := pairs.Sorted()
	for k, p := range sorted {
		if k == 0 || sorted[k-1].First != p.First {
			if k > 0 {
				bw.WriteByte('\n')
			}
			fmt.Fprintf(bw, "%d", p.First)
		}
		fmt.Fprintf(bw, " %d", p.Second)
	}
	if len(sorted) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadPairs parses a pair list. Blank lines are skipped.
func ReadPairs(r io.Reader) (core.PairSet, error) {
	pairs := core.PairSet{}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	for line := 1; s.Scan(); line++ {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want an anchor and at least one image", line)
		}
		ids := make([]core.ImageIndex, len(fields))
		for k, f := range fields {
			v, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			ids[k] = core.ImageIndex(v)
		}
		for _, second := range ids[1:] {
			if second == ids[0] {
				return nil, fmt.Errorf("line %d: %w: image %d paired with itself", line, core.ErrInvalidPair, second)
			}
			pairs.Add(core.Pair{First: ids[0], Second: second})
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}
