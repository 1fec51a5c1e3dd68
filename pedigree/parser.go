package pedigree

import (
	"bufio"
	"strings"

	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
)

// parseMode tracks which of the three pedigree-definition stanzas is
// currently being read (pedigree_parser.rs's ParseMode).
type parseMode int

const (
	modeNone parseMode = iota
	modeIndividuals
	modeRelationships
	modeComparisons
)

// Parse reads a pedigree definition file: three stanzas, "INDIVIDUALS",
// "RELATIONSHIPS" and "COMPARISONS", each introduced by its own bare
// header line (spec §4.7). Comments start at '#' and run to end of line;
// blank lines are skipped.
func Parse(scanner *bufio.Scanner) (*Pedigree, error) {
	ped := New()
	mode := modeNone
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch trimmed {
		case "INDIVIDUALS":
			mode = modeIndividuals
			continue
		case "RELATIONSHIPS":
			mode = modeRelationships
			continue
		case "COMPARISONS":
			mode = modeComparisons
			continue
		}

		var err error
		switch mode {
		case modeIndividuals:
			_, err = ped.AddIndividual(trimmed)
		case modeRelationships:
			var label, p1, p2 string
			label, p1, p2, err = parsePedLine(trimmed, "=repro(")
			if err == nil {
				err = ped.SetRelationship(label, p1, p2)
			}
		case modeComparisons:
			var label, i1, i2 string
			label, i1, i2, err = parsePedLine(trimmed, "=compare(")
			if err == nil {
				err = ped.AddComparison(label, i1, i2)
			}
		default:
			continue
		}
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "pedigree: line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, grupserr.Wrap(err, grupserr.Runtime, "pedigree: scan")
	}
	return ped, nil
}

// parsePedLine splits one "key<sep>v1,v2)" definition line, matching
// pedigree_parser.rs's parse_pedline exactly (strip the trailing ')',
// split once on sep, then split the remainder on ',').
func parsePedLine(line, sep string) (key, v1, v2 string, err error) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimSuffix(trimmed, ")")
	if trimmed == line {
		return "", "", "", grupserr.New(grupserr.ParseInput, "pedigree: missing closing ')'")
	}
	parts := strings.SplitN(trimmed, sep, 2)
	if len(parts) != 2 {
		return "", "", "", grupserr.Newf(grupserr.ParseInput, "pedigree: expected %q", sep)
	}
	values := strings.SplitN(parts[1], ",", 2)
	if len(values) != 2 {
		return "", "", "", grupserr.New(grupserr.ParseInput, "pedigree: expected exactly two comma-separated values")
	}
	return parts[0], values[0], values[1], nil
}
