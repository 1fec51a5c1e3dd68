package cmd

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"

	"github.com/MaelLefeuvre/grups-rs/classifier"
	"github.com/MaelLefeuvre/grups-rs/genotype"
	"github.com/MaelLefeuvre/grups-rs/genotype/fstreader"
	"github.com/MaelLefeuvre/grups-rs/genotype/vcfreader"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/internal/ioutil"
	"github.com/MaelLefeuvre/grups-rs/jackknife"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/MaelLefeuvre/grups-rs/pileupfmt"
	"github.com/MaelLefeuvre/grups-rs/pwdengine"
	"github.com/MaelLefeuvre/grups-rs/result"
	"github.com/MaelLefeuvre/grups-rs/simengine"
	"github.com/MaelLefeuvre/grups-rs/stats"
)

type pedigreeSimsFlags struct {
	pileup       string
	pedigreePath string
	samples      string
	genomeIndex  string
	targetsPath  string
	panelPath    string
	recombDir    string
	dataDir      string
	mode         string
	population   string
	outPrefix    string

	blockSize          int64
	minDepth           int64
	ignoreDels         bool
	filterSites        bool
	knownVariants      bool
	excludeTransitions bool
	printBlocks        bool

	reps    int64
	workers int64
	seed    int64

	snpDownsampling string
	afDownsampling  string

	seqErrorRate multiFlag
	contamRate   multiFlag
	contaminant  multiFlag
	profileIndex multiFlag
}

func pedigreeSimsUsage() {
	fmt.Fprintln(os.Stderr, `usage: grups pedigree-sims [flags]

pedigree-sims computes the observed pairwise-mismatch rate for every
comparison declared by a pedigree file, exactly as "pwd" does, and in the
same pass runs a Monte-Carlo simulation of that pedigree over the same
retained sites to build each comparison's expected-PWD distribution
(spec: "simulate a pedigree and classify observed pairs against it").

-data-dir must hold the genotype source data the simulator draws founders
and allele frequencies from: for "-mode vcf", a file named
"genotypes.vcf" (or "genotypes.vcf.gz"); for "-mode fst", a
"genotypes.fst"/"genotypes.fst.frq" pair produced by "grups fst".

Flags:`)
	pedigreeSimsFlagSet().PrintDefaults()
}

func pedigreeSimsFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("pedigree-sims", flag.ExitOnError)
}

func runPedigreeSims(argv []string) error {
	fs := pedigreeSimsFlagSet()
	fs.Usage = pedigreeSimsUsage
	var flags pedigreeSimsFlags
	fs.StringVar(&flags.pileup, "pileup", "-", "Input pileup path ('-' for stdin)")
	fs.StringVar(&flags.pedigreePath, "pedigree", "", "Pedigree file declaring individuals, relationships and comparisons")
	fs.StringVar(&flags.samples, "samples", "", "Pileup column indices for each declared individual, in declaration order (e.g. '0-2'); defaults to 0..N-1")
	fs.StringVar(&flags.genomeIndex, "genome", "", "Genome index (.fai-style 'chr\\tlength' file) used to build jackknife blocks")
	fs.StringVar(&flags.targetsPath, "targets", "", "Optional SNP-targets TSV restricting which sites are retained")
	fs.StringVar(&flags.panelPath, "panel", "", "Reference panel TSV (population assignment of every founder-eligible sample)")
	fs.StringVar(&flags.recombDir, "recomb-dir", "", "Directory of per-chromosome recombination-map files")
	fs.StringVar(&flags.dataDir, "data-dir", "", "Directory holding the mode's genotype source data")
	fs.StringVar(&flags.mode, "mode", "fst", "Genotype backend: 'fst' or 'vcf'")
	fs.StringVar(&flags.population, "population", "", "Reference-panel population founders are drawn from")
	fs.StringVar(&flags.outPrefix, "out", "grups", "Output path prefix for .pwd/.result/.simpwd/.blk")
	fs.Int64Var(&flags.blockSize, "block-size", 1_000_000, "Jackknife block width, in bp")
	fs.Int64Var(&flags.minDepth, "min-depth", 1, "Minimum per-sample pileup depth required at a site")
	fs.BoolVar(&flags.ignoreDels, "ignore-dels", false, "Drop deletion ('*') calls instead of keeping them")
	fs.BoolVar(&flags.filterSites, "filter-sites", false, "Restrict sites to those declared in -targets")
	fs.BoolVar(&flags.knownVariants, "known-variants", false, "Restrict sites to those declared in -targets with known ref/alt alleles")
	fs.BoolVar(&flags.excludeTransitions, "exclude-transitions", false, "Drop transition sites (requires -targets ref/alt alleles)")
	fs.BoolVar(&flags.printBlocks, "print-blocks", false, "Also emit the .blk jackknife block dump")
	fs.Int64Var(&flags.reps, "reps", 100, "Number of simulation replicates")
	fs.Int64Var(&flags.workers, "workers", 4, "Number of concurrent replicate workers (one genotype-backend instance each)")
	fs.Int64Var(&flags.seed, "seed", 0, "PRNG root seed; replicate r draws from seed+r")
	fs.StringVar(&flags.snpDownsampling, "snp-downsampling-rate", "0", "Fraction of sites randomly dropped per replicate; 'v' or 'lo-hi'")
	fs.StringVar(&flags.afDownsampling, "af-downsampling-rate", "0", "Per-replicate allele-frequency downsampling rate; 'v' or 'lo-hi'")
	fs.Var(&flags.seqErrorRate, "seq-error-rate", "Per-individual sequencing error rate override, repeatable: 'label=v' or 'label=lo-hi'")
	fs.Var(&flags.contamRate, "contam-rate", "Per-individual contamination rate, repeatable: 'label=v' or 'label=lo-hi'")
	fs.Var(&flags.contaminant, "contaminant", "Per-individual contaminating tag set, repeatable: 'label=pop:n[,pop:n...]'")
	fs.Var(&flags.profileIndex, "profile-sample", "Per-individual real-pileup column backing the error-rate phred fallback, repeatable: 'label=column'")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	ctx := background()

	if flags.pedigreePath == "" {
		return fatalf("pedigree-sims: -pedigree is required")
	}
	if flags.genomeIndex == "" {
		return fatalf("pedigree-sims: -genome is required")
	}
	if flags.panelPath == "" {
		return fatalf("pedigree-sims: -panel is required")
	}
	if flags.recombDir == "" {
		return fatalf("pedigree-sims: -recomb-dir is required")
	}
	if flags.dataDir == "" {
		return fatalf("pedigree-sims: -data-dir is required")
	}
	if flags.population == "" {
		return fatalf("pedigree-sims: -population is required")
	}
	if flags.workers < 1 {
		return fatalf("pedigree-sims: -workers must be >= 1")
	}

	ped, err := loadPedigree(ctx, flags.pedigreePath)
	if err != nil {
		return err
	}
	pnl, err := loadPanel(ctx, flags.panelPath)
	if err != nil {
		return err
	}
	gmap, err := loadGeneticMapDir(ctx, flags.recombDir)
	if err != nil {
		return err
	}

	var columns []int
	if flags.samples != "" {
		columns, err = parseSampleColumns(flags.samples)
		if err != nil {
			return err
		}
	} else {
		for i := range ped.Individuals() {
			columns = append(columns, i)
		}
	}
	comparisons, err := buildPedigreeComparisons(ped, columns, uint16(flags.minDepth))
	if err != nil {
		return err
	}

	genomeScanner, closeGenome, err := ioutil.Scanner(ctx, flags.genomeIndex)
	if err != nil {
		return err
	}
	lengths, err := loadGenomeLengths(genomeScanner)
	closeGenome()
	if err != nil {
		return err
	}
	blocks := jackknife.New(lengths, uint32(flags.blockSize))

	var targets *pileupfmt.Targets
	if flags.targetsPath != "" {
		targetsScanner, closeTargets, err := ioutil.Scanner(ctx, flags.targetsPath)
		if err != nil {
			return err
		}
		targets, err = pileupfmt.ParseTargetsTSV(targetsScanner)
		closeTargets()
		if err != nil {
			return err
		}
	}
	policy := pileupfmt.FilterPolicy{
		FilterSites:        flags.filterSites,
		KnownVariants:      flags.knownVariants,
		ExcludeTransitions: flags.excludeTransitions,
	}

	rng := rand.New(rand.NewSource(flags.seed))
	observed := pwdengine.New(comparisons, blocks, policy, targets, rng)

	var sites []simengine.Site
	collect := func(line pileupfmt.Line) error {
		if err := observed.ProcessLine(line); err != nil {
			return err
		}
		for _, cmp := range comparisons {
			if !cmp.Ind1.SatisfiableDepth(line.Samples) || !cmp.Ind2.SatisfiableDepth(line.Samples) {
				return nil
			}
		}
		keep, err := policy.Keep(targets, line.Coordinate, line.Ref)
		if err != nil {
			return err
		}
		if keep {
			sites = append(sites, simengine.Site{Coordinate: line.Coordinate, Pileups: line.Samples})
		}
		return nil
	}

	pileupScanner, closePileup, err := ioutil.Scanner(ctx, flags.pileup)
	if err != nil {
		return err
	}
	opts := pileupfmt.Options{IgnoreDels: flags.ignoreDels}
	skipped, err := pileupfmt.ScanLines(pileupScanner, opts, collect)
	closePileup()
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Printf("pedigree-sims: skipped %d malformed pileup line(s)", skipped)
	}
	log.Printf("pedigree-sims: running %d replicate(s) over %d site(s) with %d worker(s)", flags.reps, len(sites), flags.workers)

	snpRate, err := parseGlobalParam(flags.snpDownsampling)
	if err != nil {
		return grupserr.Wrapf(err, grupserr.ParseInput, "--snp-downsampling-rate")
	}
	afRate, err := parseGlobalParam(flags.afDownsampling)
	if err != nil {
		return grupserr.Wrapf(err, grupserr.ParseInput, "--af-downsampling-rate")
	}
	seqErrorRate, err := parsePedParamMap(flags.seqErrorRate, ped, "seq-error-rate")
	if err != nil {
		return err
	}
	contamRate, err := parsePedParamMap(flags.contamRate, ped, "contam-rate")
	if err != nil {
		return err
	}
	profileIndex, err := parseProfileIndexMap(flags.profileIndex, ped)
	if err != nil {
		return err
	}
	contaminants, err := parseContaminantMap(flags.contaminant, ped, pnl, rng)
	if err != nil {
		return err
	}

	cfg := simengine.Config{
		Template:            ped,
		GeneticMap:          gmap,
		Panel:               pnl,
		Population:          flags.population,
		SNPDownsamplingRate: snpRate,
		AFDownsamplingRate:  afRate,
		SeqErrorRate:        seqErrorRate,
		ContamRate:          contamRate,
		Contaminants:        contaminants,
		ProfileIndex:        profileIndex,
	}
	engine := simengine.New(cfg, int(flags.reps))

	backends, err := openBackends(ctx, flags.mode, flags.dataDir, int(flags.workers), pnl)
	if err != nil {
		return err
	}

	simResults, err := engine.Run(sites, backends, flags.seed)
	if err != nil {
		return err
	}

	allBlocks := blocks.All()
	pairs := make([]result.Pair, len(comparisons))
	simPairs := make([]result.SimPair, len(comparisons))
	for i, cmp := range comparisons {
		overall := observed.PairResult(i)
		pairs[i] = result.Pair{
			Label:    cmp.Label,
			Pwd:      overall,
			Estimate: stats.BlockJackknife(overall, allBlocks),
		}
		reps := make([]stats.Pwd, len(simResults))
		for r, sr := range simResults {
			reps[r] = sr.Pwd[i]
		}
		simPairs[i] = result.SimPair{Label: cmp.Label, Replicates: reps}
	}

	if err := result.WritePWD(ctx, flags.outPrefix+".pwd", pairs); err != nil {
		return err
	}
	if err := result.WriteResult(ctx, flags.outPrefix+".result", pairs, classifier.DefaultThresholds); err != nil {
		return err
	}
	if err := result.WriteSimPWD(ctx, flags.outPrefix+".simpwd", simPairs); err != nil {
		return err
	}
	if flags.printBlocks {
		if err := result.WriteBlocks(ctx, flags.outPrefix+".blk", allBlocks); err != nil {
			return err
		}
	}
	return nil
}

// parseGlobalParam parses a "-snp-downsampling-rate"/"-af-downsampling-rate"
// value, shared by every replicate ("v" or "lo-hi"), into a PedParam.
func parseGlobalParam(spec string) (simengine.PedParam, error) {
	var vals []float64
	for _, tok := range strings.Split(spec, "-") {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return simengine.PedParam{}, grupserr.Newf(grupserr.ParseInput, "bad value %q", tok)
		}
		vals = append(vals, v)
	}
	return simengine.ParamFromValues(vals)
}

// openBackends builds n independent genotype.Backend instances over the
// same underlying data, one per simengine.Engine.Run worker: vcfreader.Reader
// and fstreader.Reader both carry mutable seek state that is not safe to
// share across goroutines, so every worker needs its own instance rather
// than one shared Backend. The source bytes are only read off disk once;
// each instance just gets its own in-memory reader over the same shared
// buffer. For "-mode vcf", pnl's founder-eligible SampleTags also get
// their VCF genotype-column index resolved against the file's "#CHROM"
// header before any backend instance is handed to the simulation engine.
func openBackends(ctx context.Context, mode, dataDir string, n int, pnl *panel.ReferencePanel) ([]genotype.Backend, error) {
	switch mode {
	case "vcf":
		path, err := resolveDataFile(dataDir, "genotypes.vcf", "genotypes.vcf.gz")
		if err != nil {
			return nil, err
		}
		data, err := readAll(ctx, path)
		if err != nil {
			return nil, err
		}
		headerScanner := bufio.NewScanner(bytes.NewReader(data))
		headerScanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		columns, err := vcfreader.HeaderSamples(headerScanner)
		if err != nil {
			return nil, grupserr.Wrap(err, grupserr.ParseInput, "pedigree-sims: resolve VCF sample columns")
		}
		pnl.ResolveVCFIndex(columns)
		backends := make([]genotype.Backend, n)
		for i := range backends {
			scanner := bufio.NewScanner(bytes.NewReader(data))
			buf := make([]byte, 0, 64*1024)
			scanner.Buffer(buf, 16*1024*1024)
			backends[i] = vcfreader.New(scanner)
		}
		return backends, nil
	case "fst":
		genPath, err := resolveDataFile(dataDir, "genotypes.fst")
		if err != nil {
			return nil, err
		}
		freqPath, err := resolveDataFile(dataDir, "genotypes.fst.frq")
		if err != nil {
			return nil, err
		}
		genBytes, err := readAll(ctx, genPath)
		if err != nil {
			return nil, err
		}
		freqBytes, err := readAll(ctx, freqPath)
		if err != nil {
			return nil, err
		}
		backends := make([]genotype.Backend, n)
		for i := range backends {
			r, err := fstreader.Load(bytes.NewReader(genBytes), bytes.NewReader(freqBytes))
			if err != nil {
				return nil, grupserr.Wrap(err, grupserr.Corruption, "pedigree-sims: load .fst set")
			}
			backends[i] = r
		}
		return backends, nil
	default:
		return nil, grupserr.Newf(grupserr.ParseInput, "--mode: unknown backend %q, want 'fst' or 'vcf'", mode)
	}
}

func resolveDataFile(dir string, names ...string) (string, error) {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", grupserr.Newf(grupserr.Runtime, "data-dir %s: none of %v found", dir, names)
}

// readAll buffers path fully in memory (transparently gunzipping via
// ioutil.Open), so n independent genotype-backend instances can each get
// their own in-memory reader without re-touching disk.
func readAll(ctx context.Context, path string) ([]byte, error) {
	of, err := ioutil.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer of.Close()
	data, err := io.ReadAll(of)
	if err != nil {
		return nil, grupserr.Wrapf(err, grupserr.Runtime, "data-dir: read %s", path)
	}
	return data, nil
}
