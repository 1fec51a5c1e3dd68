package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/MaelLefeuvre/grups-rs/fstbuild"
	"github.com/MaelLefeuvre/grups-rs/genotype/fstreader"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/internal/ioutil"
)

type fstFlags struct {
	vcfPath   string
	panelPath string
	outPrefix string
}

func fstUsage() {
	fmt.Fprintln(os.Stderr, `usage: grups fst [flags]

fst scans a full VCF against a reference panel and encodes the
per-sample genotype and per-population allele-frequency key sets the
pedigree-sims "fst" backend reads at simulation time, so that a large
reference VCF only needs parsing once instead of on every pedigree-sims
invocation.

Flags:`)
	fstFlagSet().PrintDefaults()
}

func fstFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("fst", flag.ExitOnError)
}

func runFst(argv []string) error {
	fs := fstFlagSet()
	fs.Usage = fstUsage
	var flags fstFlags
	fs.StringVar(&flags.vcfPath, "vcf", "", "Source VCF to encode")
	fs.StringVar(&flags.panelPath, "panel", "", "Reference panel TSV")
	fs.StringVar(&flags.outPrefix, "out", "grups", "Output path prefix for .fst/.fst.frq")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	ctx := background()

	if flags.vcfPath == "" || flags.panelPath == "" {
		return fatalf("fst: -vcf and -panel are required")
	}

	pnl, err := loadPanel(ctx, flags.panelPath)
	if err != nil {
		return err
	}

	vcfScanner, closeVCF, err := ioutil.Scanner(ctx, flags.vcfPath)
	if err != nil {
		return err
	}
	sets, err := fstbuild.Build(vcfScanner, pnl)
	closeVCF()
	if err != nil {
		return err
	}

	genotypesBytes, err := fstreader.EncodeSet(sets.Genotypes)
	if err != nil {
		return grupserr.Wrap(err, grupserr.Runtime, "fst: encode genotypes set")
	}
	freqBytes, err := fstreader.EncodeSet(sets.Freq)
	if err != nil {
		return grupserr.Wrap(err, grupserr.Runtime, "fst: encode frequency set")
	}

	if err := writeFile(ctx, flags.outPrefix+".fst", genotypesBytes); err != nil {
		return err
	}
	return writeFile(ctx, flags.outPrefix+".fst.frq", freqBytes)
}

// writeFile dumps data to path in one call, mirroring result.writeTSV's
// open/write/close-even-on-error shape but for an already-serialized
// byte buffer rather than row-at-a-time TSV output.
func writeFile(ctx context.Context, path string, data []byte) (err error) {
	f, err := ioutil.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil && err == nil {
			err = grupserr.Wrapf(cerr, grupserr.Runtime, "fst: close %s", path)
		}
	}()
	if _, err = f.Writer(ctx).Write(data); err != nil {
		return grupserr.Wrapf(err, grupserr.Runtime, "fst: write %s", path)
	}
	return nil
}
