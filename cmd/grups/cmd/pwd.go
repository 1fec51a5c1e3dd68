package cmd

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/grailbio/base/log"

	"github.com/MaelLefeuvre/grups-rs/classifier"
	"github.com/MaelLefeuvre/grups-rs/internal/ioutil"
	"github.com/MaelLefeuvre/grups-rs/jackknife"
	"github.com/MaelLefeuvre/grups-rs/pileupfmt"
	"github.com/MaelLefeuvre/grups-rs/pwdengine"
	"github.com/MaelLefeuvre/grups-rs/result"
	"github.com/MaelLefeuvre/grups-rs/stats"
)

type pwdFlags struct {
	pileup             string
	pedigreePath       string
	samples            string
	genomeIndex        string
	targetsPath        string
	outPrefix          string
	blockSize          int64
	minDepth           int64
	ignoreDels         bool
	filterSites        bool
	knownVariants      bool
	excludeTransitions bool
	printBlocks        bool
	seed               int64
}

func pwdUsage() {
	fmt.Fprintln(os.Stderr, `usage: grups pwd [flags]

pwd reads a multi-sample samtools-mpileup stream and a pedigree file's
declared individuals and COMPARISONS stanza, draws one random allele per
compared sample at every retained site, and emits .pwd/.result (and, if
requested, .blk) files reporting the observed mismatch rate and its
block-jackknife confidence interval for every pair.

Flags:`)
	pwdFlagSet().PrintDefaults()
}

func pwdFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("pwd", flag.ExitOnError)
}

func runPwd(argv []string) error {
	fs := pwdFlagSet()
	fs.Usage = pwdUsage
	var flags pwdFlags
	fs.StringVar(&flags.pileup, "pileup", "-", "Input pileup path ('-' for stdin)")
	fs.StringVar(&flags.pedigreePath, "pedigree", "", "Pedigree file declaring individuals and comparisons")
	fs.StringVar(&flags.samples, "samples", "", "Pileup column indices for each declared individual, in declaration order (e.g. '0-2' or '0,3,5'); defaults to 0..N-1")
	fs.StringVar(&flags.genomeIndex, "genome", "", "Genome index (.fai-style 'chr\\tlength' file) used to build jackknife blocks")
	fs.StringVar(&flags.targetsPath, "targets", "", "Optional SNP-targets TSV restricting which sites are retained")
	fs.StringVar(&flags.outPrefix, "out", "grups", "Output path prefix for .pwd/.result/.blk")
	fs.Int64Var(&flags.blockSize, "block-size", 1_000_000, "Jackknife block width, in bp")
	fs.Int64Var(&flags.minDepth, "min-depth", 1, "Minimum per-sample pileup depth required at a site")
	fs.BoolVar(&flags.ignoreDels, "ignore-dels", false, "Drop deletion ('*') calls instead of keeping them")
	fs.BoolVar(&flags.filterSites, "filter-sites", false, "Restrict sites to those declared in -targets")
	fs.BoolVar(&flags.knownVariants, "known-variants", false, "Restrict sites to those declared in -targets with known ref/alt alleles")
	fs.BoolVar(&flags.excludeTransitions, "exclude-transitions", false, "Drop transition sites (requires -targets ref/alt alleles)")
	fs.BoolVar(&flags.printBlocks, "print-blocks", false, "Also emit the .blk jackknife block dump")
	fs.Int64Var(&flags.seed, "seed", 0, "PRNG seed for allele draws")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	ctx := background()

	if flags.pedigreePath == "" {
		return fatalf("pwd: -pedigree is required")
	}
	if flags.genomeIndex == "" {
		return fatalf("pwd: -genome is required")
	}
	ped, err := loadPedigree(ctx, flags.pedigreePath)
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

	engine := pwdengine.New(comparisons, blocks, policy, targets, rand.New(rand.NewSource(flags.seed)))

	pileupScanner, closePileup, err := ioutil.Scanner(ctx, flags.pileup)
	if err != nil {
		return err
	}
	defer closePileup()

	opts := pileupfmt.Options{IgnoreDels: flags.ignoreDels}
	skipped, err := pileupfmt.ScanLines(pileupScanner, opts, engine.ProcessLine)
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Printf("pwd: skipped %d malformed pileup line(s)", skipped)
	}

	allBlocks := blocks.All()
	pairs := make([]result.Pair, len(comparisons))
	for i, cmp := range comparisons {
		overall := engine.PairResult(i)
		pairs[i] = result.Pair{
			Label:    cmp.Label,
			Pwd:      overall,
			Estimate: stats.BlockJackknife(overall, allBlocks),
		}
	}

	if err := result.WritePWD(ctx, flags.outPrefix+".pwd", pairs); err != nil {
		return err
	}
	if err := result.WriteResult(ctx, flags.outPrefix+".result", pairs, classifier.DefaultThresholds); err != nil {
		return err
	}
	if flags.printBlocks {
		if err := result.WriteBlocks(ctx, flags.outPrefix+".blk", allBlocks); err != nil {
			return err
		}
	}
	return nil
}
