// Package pileupfmt parses a single-pass samtools-mpileup text stream into
// per-site Line values (spec §4.1). The decoder mirrors the column layout
// "chr pos ref [depth bases quals]*", folding case, substituting "."/","
// for the reference base, and skipping CIGAR-style indel runs and
// end-of-read markers the way samtools mpileup emits them.
package pileupfmt

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
)

// Pileup is one sample's column within a pileup Line: its kept-base depth
// (not the declared depth -- see spec §4.1) and the nucleotides themselves.
type Pileup struct {
	Depth       int
	Nucleotides []coord.Nucleotide
}

// Line is one fully decoded pileup row.
type Line struct {
	Coordinate coord.Coordinate
	Ref        coord.Allele
	Samples    []Pileup
}

// Options controls decode behavior (spec §4.1).
type Options struct {
	// IgnoreDels drops '*' (deletion) calls instead of keeping them.
	IgnoreDels bool
}

// ParseLine decodes one pileup text line (without its trailing newline, if
// any) into a Line.
func ParseLine(line string, opts Options) (Line, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) < 3 || (len(fields)-3)%3 != 0 {
		return Line{}, grupserr.New(grupserr.ParseInput, "pileup: malformed column count")
	}

	chr, err := coord.ParseChrIdx(fields[0])
	if err != nil {
		return Line{}, grupserr.Wrap(err, grupserr.ParseInput, "pileup: ParseChr")
	}
	pos, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Line{}, grupserr.Wrap(err, grupserr.ParseInput, "pileup: ParsePos")
	}
	if len(fields[2]) != 1 {
		return Line{}, grupserr.New(grupserr.ParseInput, "pileup: ParseRef")
	}
	ref := coord.Allele(strings.ToUpper(fields[2])[0])

	nSamples := (len(fields) - 3) / 3
	samples := make([]Pileup, nSamples)
	for i := 0; i < nSamples; i++ {
		base := 3 + i*3
		depthField, basesField, qualsField := fields[base], fields[base+1], fields[base+2]
		if _, err := strconv.ParseUint(depthField, 10, 32); err != nil {
			return Line{}, grupserr.Wrapf(err, grupserr.ParseInput, "pileup: ParseDepth sample %d", i)
		}
		p, err := decodeSample(ref, basesField, qualsField, opts)
		if err != nil {
			return Line{}, grupserr.Wrapf(err, grupserr.ParseInput, "pileup: sample %d", i)
		}
		samples[i] = p
	}

	return Line{
		Coordinate: coord.Coordinate{Chr: chr, Pos: coord.Position(pos)},
		Ref:        ref,
		Samples:    samples,
	}, nil
}

// decodeSample decodes the "bases" column for one sample against the
// already-decoded "quals" column, per the mpileup grammar in spec §4.1:
//
//	. , -> ref (case folded to upper)
//	ACGTacgt -> that base (case folded to upper)
//	^X -> skip next byte (start-of-read mapping-quality anchor)
//	$  -> end-of-read marker, dropped
//	+n<seq> / -n<seq> -> indel run of length n, skipped entirely
//	*  -> deletion, dropped iff opts.IgnoreDels
//	>,< -> reference skip, always a parse failure
func decodeSample(ref coord.Allele, bases, quals string, opts Options) (Pileup, error) {
	kept := make([]coord.Nucleotide, 0, len(quals))
	qi := 0
	nextQual := func() (byte, bool) {
		if qi >= len(quals) {
			return 0, false
		}
		q := quals[qi]
		qi++
		return q, true
	}

	for i := 0; i < len(bases); i++ {
		c := bases[i]
		switch {
		case c == '.' || c == ',':
			q, ok := nextQual()
			if !ok {
				return Pileup{}, grupserr.New(grupserr.ParseInput, "UnequalLength")
			}
			kept = append(kept, coord.Nucleotide{Base: ref, Qual: coord.FromASCII(q)})
		case isBase(c):
			q, ok := nextQual()
			if !ok {
				return Pileup{}, grupserr.New(grupserr.ParseInput, "UnequalLength")
			}
			kept = append(kept, coord.Nucleotide{Base: toUpperBase(c), Qual: coord.FromASCII(q)})
		case c == '^':
			// skip the mapping-quality anchor byte that follows.
			i++
			if i >= len(bases) {
				return Pileup{}, grupserr.New(grupserr.ParseInput, "pileup: truncated '^' anchor")
			}
		case c == '$':
			// end-of-read marker; nothing consumed from quals.
		case c == '+' || c == '-':
			n, width, err := readIndelLen(bases[i+1:])
			if err != nil {
				return Pileup{}, err
			}
			i += width + n
		case c == '*':
			q, ok := nextQual()
			if !ok {
				return Pileup{}, grupserr.New(grupserr.ParseInput, "UnequalLength")
			}
			if !opts.IgnoreDels {
				kept = append(kept, coord.Nucleotide{Base: coord.AlleleDel, Qual: coord.FromASCII(q)})
			}
		case c == '>' || c == '<':
			return Pileup{}, grupserr.New(grupserr.ParseInput, "RefSkip")
		default:
			return Pileup{}, grupserr.Newf(grupserr.ParseInput, "pileup: unknown base symbol %q", c)
		}
	}
	if qi != len(quals) {
		return Pileup{}, grupserr.New(grupserr.ParseInput, "UnequalLength")
	}
	return Pileup{Depth: len(kept), Nucleotides: kept}, nil
}

func isBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't', 'N', 'n':
		return true
	default:
		return false
	}
}

func toUpperBase(c byte) coord.Allele {
	switch c {
	case 'a':
		return coord.AlleleA
	case 'c':
		return coord.AlleleC
	case 'g':
		return coord.AlleleG
	case 't':
		return coord.AlleleT
	case 'n':
		return coord.AlleleN
	default:
		return coord.Allele(c)
	}
}

// readIndelLen parses the decimal run-length prefix of an indel spec (the
// bytes right after '+'/'-') and returns the run length, the number of
// bytes the decimal prefix itself occupied, and an error on malformed input.
func readIndelLen(rest string) (n int, width int, err error) {
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, 0, grupserr.New(grupserr.ParseInput, "pileup: malformed indel run length")
	}
	n, convErr := strconv.Atoi(rest[:j])
	if convErr != nil {
		return 0, 0, grupserr.Wrap(convErr, grupserr.ParseInput, "pileup: indel run length")
	}
	if j+n > len(rest) {
		return 0, 0, grupserr.New(grupserr.ParseInput, "pileup: truncated indel run")
	}
	return n, j, nil
}

// ScanLines runs fn over every non-empty line of r, skipping (and counting)
// lines that fail to parse rather than aborting the stream (spec §7:
// ParseInput failures are per-line, not fatal).
func ScanLines(scanner *bufio.Scanner, opts Options, fn func(Line) error) (skipped int, err error) {
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		line, perr := ParseLine(text, opts)
		if perr != nil {
			skipped++
			continue
		}
		if err = fn(line); err != nil {
			return skipped, err
		}
	}
	if serr := scanner.Err(); serr != nil {
		return skipped, grupserr.Wrap(serr, grupserr.Runtime, "pileup: scan")
	}
	return skipped, nil
}
