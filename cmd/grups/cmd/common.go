// Package cmd implements the grups command-line surface: pwd,
// pedigree-sims, fst. Each subcommand owns its own flag.FlagSet and
// Usage func, following cmd/bio-pileup/main.go's and
// cmd/bio-fusion/main.go's flat flag-driven option structs; Run
// dispatches to one of the three by its leading argument, the one piece
// neither teacher file needs since both are single-purpose binaries.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/vcontext"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/internal/ioutil"
	"github.com/MaelLefeuvre/grups-rs/jackknife"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/MaelLefeuvre/grups-rs/pedigree"
	"github.com/MaelLefeuvre/grups-rs/pwdengine"
	"github.com/MaelLefeuvre/grups-rs/simengine"
)

// loadGenomeLengths reads a samtools-faidx-style ".fai" file ("chr\tlength\t...",
// only the first two columns used) into the chromosome lengths
// jackknife.New needs, grounded on encoding/fasta/index.go's GenerateIndex
// row layout (name, length, offset, linebases, linewidth).
func loadGenomeLengths(scanner *bufio.Scanner) ([]jackknife.ChromosomeLength, error) {
	var out []jackknife.ChromosomeLength
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, grupserr.Newf(grupserr.ParseInput, "genome index: line %d: expected at least 2 columns", lineNo)
		}
		chr, err := coord.ParseChrIdx(fields[0])
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "genome index: line %d", lineNo)
		}
		length, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "genome index: line %d", lineNo)
		}
		out = append(out, jackknife.ChromosomeLength{Chr: chr, Length: coord.Position(length)})
	}
	if err := scanner.Err(); err != nil {
		return nil, grupserr.Wrap(err, grupserr.Runtime, "genome index: scan")
	}
	return out, nil
}

// loadGeneticMapDir loads every recombination-map file in dir into one
// GeneticMap. Each filename, minus its extension and an optional "chr"
// prefix, must parse as a chromosome (e.g. "chr12.txt", "12.gmap") or
// loading fails; the filename is only checked, since geneticmap.ScanFile
// files every record under the chromosome in its own first column. The
// first line of each file is skipped as a header.
func loadGeneticMapDir(ctx context.Context, dir string) (*geneticmap.GeneticMap, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, grupserr.Wrapf(err, grupserr.Runtime, "recomb-dir: read %s", dir)
	}
	gmap := geneticmap.New()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		token := strings.TrimPrefix(strings.TrimSuffix(name, filepath.Ext(name)), "chr")
		if _, err := coord.ParseChrIdx(token); err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "recomb-dir: cannot infer chromosome from filename %q", name)
		}
		path := filepath.Join(dir, name)
		scanner, closeFn, err := ioutil.Scanner(ctx, path)
		if err != nil {
			return nil, err
		}
		err = gmap.ScanFile(scanner, true)
		closeErr := closeFn()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, grupserr.Wrapf(closeErr, grupserr.Runtime, "recomb-dir: close %s", path)
		}
	}
	return gmap, nil
}

// parseSampleColumns expands a "--samples" flag value ("0-2" or "0,3,5")
// into an ordered list of pileup column indices.
func parseSampleColumns(spec string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(lo)
			if err != nil {
				return nil, grupserr.Newf(grupserr.ParseInput, "--samples: bad range %q", part)
			}
			hiN, err := strconv.Atoi(hi)
			if err != nil {
				return nil, grupserr.Newf(grupserr.ParseInput, "--samples: bad range %q", part)
			}
			for i := loN; i <= hiN; i++ {
				out = append(out, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, grupserr.Newf(grupserr.ParseInput, "--samples: bad index %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, grupserr.New(grupserr.ParseInput, "--samples: no column indices given")
	}
	return out, nil
}

// buildPedigreeComparisons maps a pedigree's declared individuals onto
// pwdengine.Comparison values, assigning the i-th declared individual to
// the i-th column in columns (declaration order, matching how the
// INDIVIDUALS stanza is meant to line up with the real sample columns a
// pileup carries for this run).
func buildPedigreeComparisons(ped *pedigree.Pedigree, columns []int, minDepth uint16) ([]pwdengine.Comparison, error) {
	inds := ped.Individuals()
	if len(columns) < len(inds) {
		return nil, grupserr.Newf(grupserr.ParseInput, "--samples: %d columns given, pedigree declares %d individuals", len(columns), len(inds))
	}
	byLabel := make(map[string]pwdengine.Individual, len(inds))
	for i, ind := range inds {
		byLabel[ind.Label] = pwdengine.NewIndividual(ind.Label, columns[i], minDepth)
	}
	comparisons := make([]pwdengine.Comparison, 0, len(ped.Comparisons()))
	for _, cmp := range ped.Comparisons() {
		ind1 := ped.Individual(cmp.Ind1)
		ind2 := ped.Individual(cmp.Ind2)
		comparisons = append(comparisons, pwdengine.Comparison{
			Label:          cmp.Label,
			Ind1:           byLabel[ind1.Label],
			Ind2:           byLabel[ind2.Label],
			SelfComparison: cmp.Ind1 == cmp.Ind2,
		})
	}
	return comparisons, nil
}

func loadPanel(ctx context.Context, path string) (*panel.ReferencePanel, error) {
	scanner, closeFn, err := ioutil.Scanner(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return panel.ParseTSV(scanner)
}

func loadPedigree(ctx context.Context, path string) (*pedigree.Pedigree, error) {
	scanner, closeFn, err := ioutil.Scanner(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return pedigree.Parse(scanner)
}

// multiFlag collects every occurrence of a repeatable "-flag label=value"
// option (e.g. "-seq-error-rate child=0.01"). The stdlib flag package has
// no built-in repeatable-flag type; registering one via fs.Var is the
// documented extension point for it (flag.Value), used here instead of a
// single delimited-string flag so each entry reads as its own "-flag k=v"
// rather than a packed list.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(s string) error {
	*m = append(*m, s)
	return nil
}

// splitKV splits one "label=rest" entry, as produced by a multiFlag.
func splitKV(entry string) (label, rest string, err error) {
	label, rest, ok := strings.Cut(entry, "=")
	if !ok || label == "" {
		return "", "", grupserr.Newf(grupserr.ParseInput, "expected 'label=value', got %q", entry)
	}
	return label, rest, nil
}

// parsePedParamMap turns repeated "label=v" or "label=lo-hi" entries into
// a per-individual simengine.PedParam map, resolving each label against
// ped's declared individuals (-seq-error-rate, -contam-rate).
func parsePedParamMap(entries []string, ped *pedigree.Pedigree, flagName string) (map[pedigree.IndividualID]simengine.PedParam, error) {
	out := make(map[pedigree.IndividualID]simengine.PedParam, len(entries))
	for _, entry := range entries {
		label, rest, err := splitKV(entry)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--%s", flagName)
		}
		ind, err := ped.ByLabel(label)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--%s", flagName)
		}
		var vals []float64
		for _, tok := range strings.Split(rest, "-") {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, grupserr.Newf(grupserr.ParseInput, "--%s: %q: bad value %q", flagName, entry, tok)
			}
			vals = append(vals, v)
		}
		param, err := simengine.ParamFromValues(vals)
		if err != nil {
			return nil, err
		}
		out[ind.ID] = param
	}
	return out, nil
}

// parseProfileIndexMap turns repeated "label=column" entries into the
// per-individual real-pileup sample-column map backing the per-site
// sequencing-error phred fallback (-profile-sample).
func parseProfileIndexMap(entries []string, ped *pedigree.Pedigree) (map[pedigree.IndividualID]int, error) {
	out := make(map[pedigree.IndividualID]int, len(entries))
	for _, entry := range entries {
		label, rest, err := splitKV(entry)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--profile-sample")
		}
		ind, err := ped.ByLabel(label)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--profile-sample")
		}
		col, err := strconv.Atoi(rest)
		if err != nil {
			return nil, grupserr.Newf(grupserr.ParseInput, "--profile-sample: %q: bad column", entry)
		}
		out[ind.ID] = col
	}
	return out, nil
}

// parseContaminantMap turns repeated "label=pop:n[,pop:n...]" entries into
// the per-individual contaminating tag sets simengine.Contaminant needs,
// sampling each population's tags without replacement from pnl once at
// startup (spec SUPPLEMENTED FEATURES: a per-individual set of
// contaminating population tags, not a single fixed tag).
func parseContaminantMap(entries []string, ped *pedigree.Pedigree, pnl *panel.ReferencePanel, rng *rand.Rand) (map[pedigree.IndividualID]simengine.Contaminant, error) {
	out := make(map[pedigree.IndividualID]simengine.Contaminant, len(entries))
	for _, entry := range entries {
		label, rest, err := splitKV(entry)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--contaminant")
		}
		ind, err := ped.ByLabel(label)
		if err != nil {
			return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--contaminant")
		}
		var tags []panel.SampleTag
		for _, part := range strings.Split(rest, ",") {
			pop, countStr, ok := strings.Cut(part, ":")
			if !ok {
				return nil, grupserr.Newf(grupserr.ParseInput, "--contaminant: %q: expected 'pop:n'", part)
			}
			n, err := strconv.Atoi(countStr)
			if err != nil {
				return nil, grupserr.Newf(grupserr.ParseInput, "--contaminant: %q: bad count", part)
			}
			sampled, err := pnl.SampleWithoutReplacement(pop, n, rng)
			if err != nil {
				return nil, grupserr.Wrapf(err, grupserr.ParseInput, "--contaminant: %s", pop)
			}
			tags = append(tags, sampled...)
		}
		out[ind.ID] = simengine.Contaminant{Tags: tags}
	}
	return out, nil
}

func fatalf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func background() context.Context {
	return vcontext.Background()
}

// Run dispatches to one of the three subcommands by argv[0] ("pwd",
// "pedigree-sims" or "fst"), handing each the remaining arguments for
// its own flag.FlagSet to parse.
func Run(argv []string) error {
	if len(argv) == 0 {
		usage()
		return fatalf("grups: missing subcommand")
	}
	sub, rest := argv[0], argv[1:]
	switch sub {
	case "pwd":
		return runPwd(rest)
	case "pedigree-sims":
		return runPedigreeSims(rest)
	case "fst":
		return runFst(rest)
	case "-h", "-help", "--help":
		usage()
		return nil
	default:
		usage()
		return fatalf("grups: unknown subcommand %q", sub)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `grups is a pairwise-mismatch and pedigree-simulation tool for ancient DNA.

Usage:

	grups <command> [arguments]

Commands:

	pwd             compute observed pairwise-mismatch rates from a pileup
	pedigree-sims   simulate a pedigree and classify observed pairs against it
	fst             build an .fst/.fst.frq key-set pair from a VCF

Use "grups <command> -h" for a command's own flags.`)
}
