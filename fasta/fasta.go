package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode"

	"github.com/TuftsBCB/seq"
)

// AnalogueSymbol is the residue used in references and pore models to mark
// a position occupied by a base analogue.
const AnalogueSymbol = 'B'

// A Reader reads sequences from FASTA encoded input.
//
// If TrustSequences is true, then sequence data will not be checked to make
// sure that it conforms to the NCBI spec. (See the Read method for details.)
// By default, TrustSequences is false.
type Reader struct {
	// When set to true, the sequences will not be checked for errors.
	// If you trust the data, this may improve performance.
	// This may be set at any time.
	TrustSequences bool

	// Translate checks and maps each sequence character. It defaults to
	// TranslateNormal.
	Translate  Translator
	buf        *bufio.Reader
	line       int
	nextHeader []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		TrustSequences: false,
		Translate:      TranslateNormal,
		buf:            bufio.NewReader(r),
		line:           1,
		nextHeader:     nil,
	}
}

// ReadReference reads the first sequence in the input as a nucleotide
// reference. Only A, C, G, T and the analogue symbol are accepted.
func ReadReference(r io.Reader) (seq.Sequence, error) {
	fr := NewReader(r)
	fr.Translate = TranslateNucleotide
	s, err := fr.Read()
	if err == io.EOF {
		return seq.Sequence{}, fmt.Errorf("No reference sequence found.")
	}
	if err != nil {
		return seq.Sequence{}, err
	}
	if len(s.Residues) == 0 {
		return seq.Sequence{}, fmt.Errorf("Reference '%s' is empty.", s.Name)
	}
	return s, nil
}

// ReadAll will read all sequences in the FASTA input and return them as a
// slice. If an error is encountered, processing is stopped, and the error is
// returned.
func (r *Reader) ReadAll() ([]seq.Sequence, error) {
	seqs := make([]seq.Sequence, 0, 100)
	for {
		s, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, s)
	}
	return seqs, nil
}

// Read will read the next sequence in the FASTA input.
// The format roughly corresponds to that described by NCBI:
// http://blast.ncbi.nlm.nih.gov/blastcgihelp.shtml
//
// In particular, the only characters allowed in the sequence section
// are those admitted by the reader's Translator. Any other character will
// result in an error.
//
// Blank lines, leading and trailing whitespace are always ignored (regardless
// of where they are).
//
// It is NOT safe to call this function from multiple goroutines.
func (r *Reader) Read() (seq.Sequence, error) {
	s, err := r.readSequence()
	if !isNull(s) {
		return s, nil
	}
	if err == io.EOF {
		return seq.Sequence{}, err
	}
	if err != nil {
		return seq.Sequence{}, fmt.Errorf("Error on line %d: %s", r.line, err)
	}
	panic("unreachable")
}

func (r *Reader) readSequence() (seq.Sequence, error) {
	s := seq.Sequence{}
	seenHeader := false
	translate := r.Translate
	if translate == nil {
		translate = TranslateNormal
	}

	// Before entering the main loop, we have to check to see if we've
	// already read this entry's header.
	if r.nextHeader != nil {
		s.Name = trimHeader(r.nextHeader)
		r.nextHeader = nil
		seenHeader = true
	}
	for {
		line, err := r.buf.ReadBytes('\n')
		if err == io.EOF {
			if len(line) == 0 {
				return s, io.EOF
			}
		} else if err != nil {
			return seq.Sequence{}, err
		}
		line = bytes.TrimSpace(line)

		// If it's empty, increment the counter and skip ahead.
		if len(line) == 0 {
			r.line++
			continue
		}

		// If we haven't seen the header yet, this better be it.
		if !seenHeader {
			if line[0] != '>' {
				return seq.Sequence{},
					fmt.Errorf("Expected '>', got '%c'.", line[0])
			}
			s.Name = trimHeader(line)
			seenHeader = true

			r.line++
			continue
		} else if line[0] == '>' {
			// This means we've begun reading the next entry.
			r.nextHeader = line

			r.line++
			return s, nil
		}

		if s.Residues == nil {
			s.Residues = make([]seq.Residue, 0, 50)
		}
		for _, b := range line {
			if !r.TrustSequences {
				bNew, ok := translate(b)
				if !ok {
					return seq.Sequence{},
						fmt.Errorf("Invalid character '%c' on line %d.",
							b, r.line)
				}
				b = bNew
			}
			s.Residues = append(s.Residues, seq.Residue(b))
		}
		r.line++
	}
}

// A Translator is a function that accepts a single character, checks whether
// it's valid, and optionally maps it to a new character.
type Translator func(b byte) (byte, bool)

// TranslateNormal is the default translator for regular FASTA files.
func TranslateNormal(b byte) (byte, bool) {
	switch {
	case b >= 'a' && b <= 'z':
		b = byte(unicode.ToTitle(rune(b)))
	case b >= 'A' && b <= 'Z':
	case b == '*':
	case b == '-':
	default:
		return 0, false
	}
	return b, true
}

// TranslateNucleotide admits the four canonical bases and the analogue
// symbol, in either case.
func TranslateNucleotide(b byte) (byte, bool) {
	b = byte(unicode.ToUpper(rune(b)))
	switch b {
	case 'A', 'C', 'G', 'T', AnalogueSymbol:
		return b, true
	}
	return 0, false
}

func isNull(s seq.Sequence) bool {
	return len(s.Name) == 0 && s.Residues == nil
}

func trimHeader(line []byte) string {
	return string(bytes.TrimSpace(bytes.TrimLeft(line, ">")))
}
