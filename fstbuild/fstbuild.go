// Package fstbuild builds the two sorted key sets the `fst` backend reads
// (spec §4.8 "FST backend") from a full VCF scan plus a reference panel,
// ready to hand to genotype/fstreader.EncodeSet.
//
// Grounded on original_source/src/vcf-fst/src/error.rs's variant naming
// (MissingVTTag, ParseAlleleFrequency, EncodeChr/EncodePos,
// DuplicatePopFreqTag) for the failure modes below, and on
// genotype/vcfreader's line grammar (VT=SNP/MULTI_ALLELIC filtering,
// "<pop>_AF=" INFO parsing, "0|1"-style GT fields) -- but reading the
// whole file rather than seeking forward to a single target, since
// building the key sets needs every site and sample up front.
package fstbuild

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/panel"
)

const (
	// fixedColumns mirrors vcfreader's CHROM..FORMAT prefix width.
	fixedColumns = 9
	// freqPrecision is the decimal precision frequency keys are encoded
	// at; any precision round-trips through strconv.ParseFloat in
	// fstreader.Reader.PopAF.
	freqPrecision = 6
)

// KeySets holds the two sorted, deduplicated key slices ready for
// genotype/fstreader.EncodeSet.
type KeySets struct {
	Genotypes []string
	Freq      []string
}

// uniquePanelSamples returns every sample tagged anywhere in pnl, each
// listed once regardless of how many populations it belongs to.
func uniquePanelSamples(pnl *panel.ReferencePanel) []panel.SampleTag {
	seen := make(map[string]bool)
	var out []panel.SampleTag
	for _, pop := range pnl.Populations() {
		for _, tag := range pnl.Population(pop) {
			if !seen[tag.ID] {
				seen[tag.ID] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

// parseHeader maps a VCF sample column name to its index into the
// per-sample genotype fields (fields[fixedColumns:]).
func parseHeader(line string) (map[string]int, error) {
	if !strings.HasPrefix(line, "#CHROM") {
		return nil, grupserr.New(grupserr.InvalidFormat, "fstbuild: expected #CHROM header line")
	}
	fields := strings.Split(strings.TrimPrefix(line, "#"), "\t")
	if len(fields) < fixedColumns {
		return nil, grupserr.Newf(grupserr.InvalidFormat, "fstbuild: header has %d columns, expected at least %d", len(fields), fixedColumns)
	}
	idx := make(map[string]int, len(fields)-fixedColumns)
	for i, name := range fields[fixedColumns:] {
		idx[name] = i
	}
	return idx, nil
}

func infoTags(info string) []string { return strings.Split(info, ";") }

func isSNP(tags []string) bool {
	for _, tag := range tags {
		if strings.HasPrefix(tag, "VT=") {
			return strings.TrimPrefix(tag, "VT=") == "SNP"
		}
	}
	return false
}

func isMultiallelic(tags []string) bool {
	for _, tag := range tags {
		if tag == "MULTI_ALLELIC" {
			return true
		}
	}
	return false
}

// popAF returns pop's "<pop>_AF=" INFO tag value, erroring on a
// duplicate tag (vcf-fst's DuplicatePopFreqTag) rather than silently
// taking the first or last match.
func popAF(tags []string, pop string) (float64, bool, error) {
	prefix := pop + "_AF="
	found := false
	var af float64
	for _, tag := range tags {
		if !strings.HasPrefix(tag, prefix) {
			continue
		}
		parts := strings.SplitN(tag, "=", 2)
		if len(parts) != 2 {
			return 0, false, grupserr.Newf(grupserr.InvalidFormat, "fstbuild: malformed INFO tag %q", tag)
		}
		if found {
			return 0, false, grupserr.Newf(grupserr.InvalidFormat, "fstbuild: duplicate %s_AF INFO tag", pop)
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, false, grupserr.Wrapf(err, grupserr.ParseInput, "fstbuild: parse %s_AF", pop)
		}
		af, found = v, true
	}
	return af, found, nil
}

func genotypeKey(chr coord.ChrIdx, pos coord.Position, sampleID, gtField string) (string, bool, error) {
	if sep := strings.IndexByte(gtField, ':'); sep >= 0 {
		gtField = gtField[:sep]
	}
	sep := strings.IndexAny(gtField, "|/")
	if sep < 0 || len(gtField) != 3 {
		return "", false, grupserr.Newf(grupserr.InvalidFormat, "fstbuild: malformed genotype field %q", gtField)
	}
	a1, a2 := gtField[:sep], gtField[sep+1:]
	if a1 == "." || a2 == "." {
		return "", false, nil
	}
	if (a1 != "0" && a1 != "1") || (a2 != "0" && a2 != "1") {
		return "", false, grupserr.Newf(grupserr.InvalidFormat, "fstbuild: unexpected GT allele in %q", gtField)
	}
	return fmt.Sprintf("%d %09d %s %s%s", uint8(chr), uint32(pos), sampleID, a1, a2), true, nil
}

func freqKey(chr coord.ChrIdx, pos coord.Position, pop string, af float64) string {
	return fmt.Sprintf("%d %09d %s %s", uint8(chr), uint32(pos), pop, strconv.FormatFloat(af, 'f', freqPrecision, 64))
}

// Build scans a full VCF (its #CHROM header plus every SNP record) and
// returns the genotype and frequency key sets for every sample and
// population registered in pnl, sorted and deduplicated as
// genotype/fstreader.EncodeSet requires.
func Build(scanner *bufio.Scanner, pnl *panel.ReferencePanel) (*KeySets, error) {
	samples := uniquePanelSamples(pnl)
	populations := pnl.Populations()

	var colIdx map[string]int
	var genotypeKeys, freqKeys []string

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "##") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			hdr, err := parseHeader(line)
			if err != nil {
				return nil, err
			}
			colIdx = hdr
			continue
		}
		if colIdx == nil {
			return nil, grupserr.New(grupserr.InvalidFormat, "fstbuild: record seen before #CHROM header")
		}

		fields := strings.Split(line, "\t")
		if len(fields) < fixedColumns {
			return nil, grupserr.Newf(grupserr.InvalidFormat, "fstbuild: expected at least %d columns, got %d", fixedColumns, len(fields))
		}
		tags := infoTags(fields[7])
		if !isSNP(tags) || isMultiallelic(tags) {
			continue
		}
		if len(fields[3]) != 1 || len(fields[4]) != 1 {
			continue
		}
		chr, err := coord.ParseChrIdx(fields[0])
		if err != nil {
			return nil, grupserr.Wrap(err, grupserr.ParseInput, "fstbuild: EncodeChr")
		}
		posVal, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, grupserr.Wrap(err, grupserr.ParseInput, "fstbuild: EncodePos")
		}
		pos := coord.Position(posVal)
		gtCols := fields[fixedColumns:]

		for _, tag := range samples {
			j, ok := colIdx[tag.ID]
			if !ok || j >= len(gtCols) {
				continue
			}
			key, ok, err := genotypeKey(chr, pos, tag.ID, gtCols[j])
			if err != nil {
				return nil, err
			}
			if ok {
				genotypeKeys = append(genotypeKeys, key)
			}
		}
		for _, pop := range populations {
			af, ok, err := popAF(tags, pop)
			if err != nil {
				return nil, err
			}
			if ok {
				freqKeys = append(freqKeys, freqKey(chr, pos, pop, af))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, grupserr.Wrap(err, grupserr.Runtime, "fstbuild: scan")
	}

	return &KeySets{
		Genotypes: dedupeSorted(genotypeKeys),
		Freq:      dedupeSorted(freqKeys),
	}, nil
}

func dedupeSorted(keys []string) []string {
	sort.Strings(keys)
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
