// Package vcfreader implements the streaming, forward-only VCF genotype
// backend (spec §4.8's "VCF backend").
//
// Grounded on original_source/src/pedigree_sims/src/io/vcf/* (sampletag
// wiring, forward-only seek contract) and
// original_source/src/grups-io/src/read/genotype_reader/vcf/info/mod.rs
// (INFO-field VT=SNP/MULTI_ALLELIC/{pop}_AF= parsing, reproduced field
// for field).
package vcfreader

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/genotype"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/panel"
)

// fixedColumns is the count of mandatory VCF columns preceding the
// per-sample genotype columns (CHROM POS ID REF ALT QUAL FILTER INFO
// FORMAT).
const fixedColumns = 9

// record is the currently-seeked VCF line, split into its columns.
type record struct {
	chr     coord.ChrIdx
	pos     coord.Position
	snv     bool     // REF and ALT are both a single base
	info    []string // INFO column, split on ';'
	samples []string // per-sample genotype fields, in column order
}

// Reader streams a VCF (optionally gzip-decoded upstream by the caller)
// one line at a time; lookups must be presented in ascending coordinate
// order, since the underlying scanner only ever advances forward.
type Reader struct {
	scanner *bufio.Scanner
	current *record
	pending *record // record read past a missed target, replayed by the next Seek
	done    bool
}

// New wraps scanner as a forward-only VCF genotype backend. Header lines
// (starting with '#') are skipped automatically.
func New(scanner *bufio.Scanner) *Reader {
	return &Reader{scanner: scanner}
}

// HeaderSamples scans scanner forward to the mandatory "#CHROM" header line
// and returns each declared sample's genotype-column index, keyed by sample
// id (spec §3/§4.8: "idx resolved lazily against a VCF header"). The caller
// must present an independent scanner positioned at the top of the file;
// HeaderSamples consumes lines up to and including the header and does not
// rewind them, so a Reader used for Seek afterwards needs its own scanner.
func HeaderSamples(scanner *bufio.Scanner) (map[string]int, error) {
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#CHROM") {
			fields := strings.Split(line, "\t")
			if len(fields) <= fixedColumns {
				return nil, grupserr.New(grupserr.InvalidFormat, "vcfreader: #CHROM header declares no sample columns")
			}
			columns := make(map[string]int, len(fields)-fixedColumns)
			for i, name := range fields[fixedColumns:] {
				columns[name] = i
			}
			return columns, nil
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, grupserr.Wrap(err, grupserr.Runtime, "vcfreader: scan header")
	}
	return nil, grupserr.New(grupserr.ParseInput, "vcfreader: missing #CHROM header line")
}

func (r *Reader) Kind() genotype.Kind { return genotype.Vcf }

// Seek advances the underlying scanner until a non-multiallelic SNP
// record at target is found, skipping header lines, indels,
// multi-allelic sites, and any record positioned strictly before target.
// Returns a MissingResource-kind error if target is not in this VCF:
// either a later record was reached first (that record is kept and
// replayed by the next Seek) or the scanner ran out.
func (r *Reader) Seek(target coord.Coordinate) error {
	r.current = nil
	if rec := r.pending; rec != nil {
		c := coord.Coordinate{Chr: rec.chr, Pos: rec.pos}
		if target.Less(c) {
			return grupserr.Newf(grupserr.MissingResource, "vcfreader: target %s not found (passed at %s)", target, c)
		}
		r.pending = nil
		if c == target {
			r.current = rec
			return nil
		}
	}
	if r.done {
		return grupserr.New(grupserr.MissingResource, "vcfreader: Seek after EOF")
	}
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return err
		}
		if !rec.isSNP() || rec.isMultiallelic() || !rec.snv {
			continue
		}
		c := coord.Coordinate{Chr: rec.chr, Pos: rec.pos}
		switch {
		case c.Less(target):
			continue
		case c == target:
			r.current = rec
			return nil
		default:
			r.pending = rec
			return grupserr.Newf(grupserr.MissingResource, "vcfreader: target %s not found (passed at %s)", target, c)
		}
	}
	r.done = true
	if err := r.scanner.Err(); err != nil {
		return grupserr.Wrap(err, grupserr.Runtime, "vcfreader: scan")
	}
	return grupserr.Newf(grupserr.MissingResource, "vcfreader: target %s not found (EOF)", target)
}

func parseLine(line string) (*record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < fixedColumns {
		return nil, grupserr.Newf(grupserr.InvalidFormat, "vcfreader: expected at least %d columns, got %d", fixedColumns, len(fields))
	}
	chr, err := coord.ParseChrIdx(fields[0])
	if err != nil {
		return nil, grupserr.Wrap(err, grupserr.ParseInput, "vcfreader: ParseChrIdx")
	}
	pos, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return nil, grupserr.Wrap(err, grupserr.ParseInput, "vcfreader: ParsePos")
	}
	return &record{
		chr:     chr,
		pos:     coord.Position(pos),
		snv:     len(fields[3]) == 1 && len(fields[4]) == 1,
		info:    strings.Split(fields[7], ";"),
		samples: fields[fixedColumns:],
	}, nil
}

func (r *record) isSNP() bool {
	for _, tag := range r.info {
		if strings.HasPrefix(tag, "VT=") {
			return strings.TrimPrefix(tag, "VT=") == "SNP"
		}
	}
	return false
}

func (r *record) isMultiallelic() bool {
	for _, tag := range r.info {
		if tag == "MULTI_ALLELIC" {
			return true
		}
	}
	return false
}

// popAF returns the INFO tag value for "<pop>_AF=", matching
// info/mod.rs's get_pop_allele_frequency.
func (r *record) popAF(pop string) (float64, error) {
	prefix := pop + "_AF="
	for _, tag := range r.info {
		if strings.HasPrefix(tag, prefix) {
			parts := strings.SplitN(tag, "=", 2)
			if len(parts) != 2 {
				return 0, grupserr.Newf(grupserr.InvalidFormat, "vcfreader: malformed INFO tag %q", tag)
			}
			af, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return 0, grupserr.Wrap(err, grupserr.ParseInput, "vcfreader: ParseAlleleFrequency")
			}
			return af, nil
		}
	}
	return 0, grupserr.Newf(grupserr.MissingResource, "vcfreader: no %s_AF INFO tag at this site", pop)
}

// Alleles decodes tag's genotype column ("0|1", "1/1", etc.) into two
// 0/1 genotype codes (0 = REF, 1 = ALT). A missing genotype ("./." or
// ".|.") is a MissingResource error (spec §4.8).
func (r *Reader) Alleles(tag panel.SampleTag) ([2]genome.GenotypeCode, error) {
	var zero [2]genome.GenotypeCode
	if r.current == nil {
		return zero, grupserr.New(grupserr.Policy, "vcfreader: Alleles called before a successful Seek")
	}
	if tag.Idx == nil {
		return zero, grupserr.Newf(grupserr.Policy, "vcfreader: sample %q has no resolved VCF column index", tag.ID)
	}
	idx := *tag.Idx
	if idx < 0 || idx >= len(r.current.samples) {
		return zero, grupserr.Newf(grupserr.Policy, "vcfreader: sample index %d out of range", idx)
	}
	gt := r.current.samples[idx]
	if sep := strings.IndexAny(gt, ":"); sep >= 0 {
		gt = gt[:sep]
	}
	sep := strings.IndexAny(gt, "|/")
	if sep < 0 || len(gt) != 3 {
		return zero, grupserr.Newf(grupserr.InvalidFormat, "vcfreader: malformed genotype field %q", gt)
	}
	a1, a2 := gt[:sep], gt[sep+1:]
	if a1 == "." || a2 == "." {
		return zero, grupserr.Newf(grupserr.MissingResource, "vcfreader: missing genotype for sample %q", tag.ID)
	}
	decode := func(s string) (genome.GenotypeCode, error) {
		switch s {
		case "0":
			return genome.CodeRef, nil
		case "1":
			return genome.CodeAlt, nil
		default:
			return 0, grupserr.Newf(grupserr.InvalidFormat, "vcfreader: unexpected GT allele %q", s)
		}
	}
	allele1, err := decode(a1)
	if err != nil {
		return zero, err
	}
	allele2, err := decode(a2)
	if err != nil {
		return zero, err
	}
	return [2]genome.GenotypeCode{allele1, allele2}, nil
}

// PopAF returns the population allele frequency annotated at the
// current site's INFO column.
func (r *Reader) PopAF(pop string) (float64, error) {
	if r.current == nil {
		return 0, grupserr.New(grupserr.Policy, "vcfreader: PopAF called before a successful Seek")
	}
	return r.current.popAF(pop)
}
