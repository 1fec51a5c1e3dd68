package pileupfmt

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
)

// Target is one entry of an optional SNP target set (spec §4.2): a
// coordinate with optionally known REF/ALT alleles.
type Target struct {
	Coordinate coord.Coordinate
	Ref, Alt   coord.Allele // zero value (coord.Allele(0)) means "unknown"
}

func (t Target) hasAlleles() bool { return t.Ref != 0 && t.Alt != 0 }

// Targets is a set of SNP target coordinates, keyed by coordinate (no
// iteration order is kept), used to implement
// the filter_sites / known_variants / exclude_transitions policies.
type Targets struct {
	byCoord map[coord.Coordinate]Target
}

// NewTargets builds a Targets set from a slice of entries.
func NewTargets(entries []Target) *Targets {
	m := make(map[coord.Coordinate]Target, len(entries))
	for _, e := range entries {
		m[e.Coordinate] = e
	}
	return &Targets{byCoord: m}
}

// ParseTargetsTSV reads a "chr\tpos[\tref\talt]" target file (spec §6).
func ParseTargetsTSV(scanner *bufio.Scanner) (*Targets, error) {
	var entries []Target
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, grupserr.New(grupserr.ParseInput, "targets: malformed line")
		}
		chr, err := coord.ParseChrIdx(fields[0])
		if err != nil {
			return nil, grupserr.Wrap(err, grupserr.ParseInput, "targets: ParseChr")
		}
		posU, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, grupserr.Wrap(err, grupserr.ParseInput, "targets: ParsePos")
		}
		t := Target{Coordinate: coord.Coordinate{Chr: chr, Pos: coord.Position(posU)}}
		if len(fields) >= 4 && len(fields[2]) == 1 && len(fields[3]) == 1 {
			t.Ref = coord.Allele(strings.ToUpper(fields[2])[0])
			t.Alt = coord.Allele(strings.ToUpper(fields[3])[0])
		}
		entries = append(entries, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, grupserr.Wrap(err, grupserr.Runtime, "targets: scan")
	}
	return NewTargets(entries), nil
}

// FilterPolicy bundles the three target-driven line policies of spec §4.2.
type FilterPolicy struct {
	FilterSites        bool
	KnownVariants      bool
	ExcludeTransitions bool
}

// Keep reports whether the line at coordinate c, with observed reference
// ref, should be retained under the configured policy. targets may be nil
// when no target set was supplied.
func (p FilterPolicy) Keep(targets *Targets, c coord.Coordinate, ref coord.Allele) (bool, error) {
	var target Target
	found := false
	if targets != nil {
		target, found = targets.byCoord[c]
	}

	if p.FilterSites && !found {
		return false, nil
	}
	if p.KnownVariants {
		if !found || !target.hasAlleles() {
			return false, nil
		}
	}
	if p.ExcludeTransitions {
		if !found || !target.hasAlleles() {
			return false, grupserr.New(grupserr.Policy, "exclude_transitions requires known target alleles: MissingTargetPositions")
		}
		if coord.IsTransition(target.Ref, target.Alt) {
			return false, nil
		}
	}
	return true, nil
}
