/*
Package poremodel reads nanopore pore-model tables: the expected current
level (mean and standard deviation) measured while each k-mer sits in the
pore.

The accepted format is the one ONT distributes, one k-mer per line:

	kmer	level_mean	level_stdv	[further columns ignored]
	AAAAAA	53.5	1.24	...

Header rows, blank lines and lines starting with '#' are skipped. K-mers are
read case-insensitively and stored in upper case. Tables for
base analogues use the same format with the analogue symbol appearing inside
k-mers; such tables are usually partial.
*/
package poremodel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Canonical is the alphabet every complete pore model covers.
const Canonical = "ACGT"

// ErrIncomplete is returned by Complete when a canonical k-mer is missing.
var ErrIncomplete = errors.New("pore model is incomplete")

// Entry is the normal distribution of current observed for one k-mer.
type Entry struct {
	Mean, StdDev float64
}

// Table maps k-mers to their expected current. All k-mers in a table have
// the same length.
type Table struct {
	k       int
	entries map[string]Entry
}

// NewTable returns an empty table for k-mers of length k. A k of 0 means the
// length is fixed by the first k-mer stored.
func NewTable(k int) *Table {
	return &Table{k: k, entries: make(map[string]Entry, 1<<uint(2*k))}
}

// Read parses a pore model from r.
func Read(r io.Reader) (*Table, error) {
	t := NewTable(0)
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if !isKmer(fields[0]) || strings.EqualFold(fields[0], "kmer") {
			// Column headers.
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("Error on line %d: expected at least "+
				"3 columns but got %d.", line, len(fields))
		}
		mean, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("Error on line %d: bad mean '%s': %s",
				line, fields[1], err)
		}
		stdv, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("Error on line %d: bad spread '%s': %s",
				line, fields[2], err)
		}
		if stdv <= 0 {
			return nil, fmt.Errorf("Error on line %d: spread must be "+
				"positive but got %f.", line, stdv)
		}
		kmer := strings.ToUpper(fields[0])
		if err := t.Set(kmer, Entry{mean, stdv}); err != nil {
			return nil, fmt.Errorf("Error on line %d: %s", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Error reading pore model: %s", err)
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("Pore model contains no k-mers.")
	}
	return t, nil
}

// isKmer reports whether s looks like a k-mer rather than a column header:
// every character must be a base or analogue letter, in either case.
func isKmer(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return len(s) > 0
}

// K returns the k-mer length of the table, or 0 if it is empty.
func (t *Table) K() int {
	return t.k
}

// Len returns the number of k-mers stored.
func (t *Table) Len() int {
	return len(t.entries)
}

// Set stores an entry, replacing any previous one for kmer.
func (t *Table) Set(kmer string, e Entry) error {
	if t.k == 0 {
		t.k = len(kmer)
	}
	if len(kmer) != t.k {
		return fmt.Errorf("k-mer '%s' has length %d, but other k-mers "+
			"have length %d.", kmer, len(kmer), t.k)
	}
	t.entries[kmer] = e
	return nil
}

// Lookup returns the mean and standard deviation of current for kmer.
func (t *Table) Lookup(kmer string) (mean, stdv float64, ok bool) {
	e, ok := t.entries[kmer]
	return e.Mean, e.StdDev, ok
}

// Complete checks that every k-mer over alphabet is present.
func (t *Table) Complete(alphabet string) error {
	for _, kmer := range Kmers(alphabet, t.k) {
		if _, ok := t.entries[kmer]; !ok {
			return fmt.Errorf("Missing k-mer '%s': %w", kmer, ErrIncomplete)
		}
	}
	return nil
}

// Kmers enumerates every k-mer over alphabet in lexicographic order of the
// alphabet as given.
func Kmers(alphabet string, k int) []string {
	if k <= 0 {
		return nil
	}
	n := 1
	for i := 0; i < k; i++ {
		n *= len(alphabet)
	}
	kmers := make([]string, n)
	buf := make([]byte, k)
	for i := range kmers {
		v := i
		for j := k - 1; j >= 0; j-- {
			buf[j] = alphabet[v%len(alphabet)]
			v /= len(alphabet)
		}
		kmers[i] = string(buf)
	}
	return kmers
}
