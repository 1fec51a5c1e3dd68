// Package result emits the three per-pileup output files described in
// spec §4.9: `.pwd` (per-pair observed statistics), `.result` (per-pair
// predicted relationship) and `.blk` (jackknife block dump, gated on
// print_blocks), plus the pedigree-sims `.simpwd` summary of simulated
// replicates. Rows are written column-by-column through
// github.com/grailbio/base/tsv.Writer, the same TSV emitter
// encoding/fasta/index.go's GenerateIndex uses to print `.fai` rows;
// byte-exactness (spec §6) only constrains the final tab-separated,
// newline-terminated bytes, which is exactly what tsv.Writer produces.
package result

import (
	"context"
	"math"
	"strconv"

	"github.com/grailbio/base/tsv"

	"github.com/MaelLefeuvre/grups-rs/classifier"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/internal/ioutil"
	"github.com/MaelLefeuvre/grups-rs/jackknife"
	"github.com/MaelLefeuvre/grups-rs/stats"
)

// floatPrecision is the decimal precision of every printed average/CI
// bound (spec §6: "decimal precision of 6 for averages").
const floatPrecision = 6

// Pair is one comparison's label plus its accumulated observed PWD
// counter and derived jackknife estimate (spec §4.3, §4.9).
type Pair struct {
	Label    string
	Pwd      stats.Pwd
	Estimate stats.Estimate
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', floatPrecision, 64)
}

// writeTSV opens path and hands a tsv.Writer to rows, flushing and
// closing afterwards regardless of outcome.
func writeTSV(ctx context.Context, path string, rows func(w *tsv.Writer) error) (err error) {
	f, err := ioutil.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil && err == nil {
			err = grupserr.Wrapf(cerr, grupserr.Runtime, "result: close %s", path)
		}
	}()

	w := tsv.NewWriter(f.Writer(ctx))
	if err = rows(w); err != nil {
		return grupserr.Wrapf(err, grupserr.Runtime, "result: write %s", path)
	}
	if err = w.Flush(); err != nil {
		return grupserr.Wrapf(err, grupserr.Runtime, "result: flush %s", path)
	}
	return nil
}

// WritePWD emits the `.pwd` file: one row per pair --
// `pair  overlap  sum  avg  ci_low  ci_high` (spec §4.9 item 1).
func WritePWD(ctx context.Context, path string, pairs []Pair) error {
	return writeTSV(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("pair")
		w.WriteString("overlap")
		w.WriteString("sum")
		w.WriteString("avg")
		w.WriteString("ci_low")
		w.WriteString("ci_high")
		if err := w.EndLine(); err != nil {
			return err
		}
		for _, p := range pairs {
			w.WriteString(p.Label)
			w.WriteInt64(int64(p.Pwd.Overlap))
			w.WriteInt64(int64(p.Pwd.Sum))
			w.WriteString(formatFloat(p.Estimate.Avg))
			w.WriteString(formatFloat(p.Estimate.CILow))
			w.WriteString(formatFloat(p.Estimate.CIHigh))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteResult emits the `.result` file: one row per pair --
// `pair  predicted_relationship  overlap  avg` (spec §4.9 item 2).
// The trailing overlap/avg columns are carried alongside the prediction
// since classifier.Classify's stand-in threshold table has no separate
// confidence measure to report (classifier package doc comment).
func WriteResult(ctx context.Context, path string, pairs []Pair, thresholds classifier.Thresholds) error {
	return writeTSV(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("pair")
		w.WriteString("relationship")
		w.WriteString("overlap")
		w.WriteString("avg")
		if err := w.EndLine(); err != nil {
			return err
		}
		for _, p := range pairs {
			rel := classifier.Classify(thresholds, p.Pwd.Overlap, p.Estimate.Avg)
			w.WriteString(p.Label)
			w.WriteString(string(rel))
			w.WriteInt64(int64(p.Pwd.Overlap))
			w.WriteString(formatFloat(p.Estimate.Avg))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return nil
	})
}

// SimPair is one comparison's empirical simulated-PWD distribution across
// every completed replicate (spec §4.7's Monte-Carlo output, ahead of a
// future SVM classifier consuming the same per-replicate features).
type SimPair struct {
	Label      string
	Replicates []stats.Pwd
}

// meanStddev returns the mean and population standard deviation of avg
// PWD across a comparison's replicates.
func meanStddev(reps []stats.Pwd) (mean, stddev float64) {
	if len(reps) == 0 {
		return 0, 0
	}
	for _, r := range reps {
		mean += r.Avg()
	}
	mean /= float64(len(reps))
	for _, r := range reps {
		d := r.Avg() - mean
		stddev += d * d
	}
	stddev = math.Sqrt(stddev / float64(len(reps)))
	return mean, stddev
}

// WriteSimPWD emits the `.simpwd` file: one row per pair summarizing its
// simulated-PWD distribution over every replicate -- `pair  replicates
// mean_avg  stddev_avg` (spec §4.7, §5's Monte-Carlo simulation output;
// this empirical summary stands in for the SVM's training features per
// the classifier package's documented non-goal).
func WriteSimPWD(ctx context.Context, path string, pairs []SimPair) error {
	return writeTSV(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("pair")
		w.WriteString("replicates")
		w.WriteString("mean_avg")
		w.WriteString("stddev_avg")
		if err := w.EndLine(); err != nil {
			return err
		}
		for _, p := range pairs {
			mean, stddev := meanStddev(p.Replicates)
			w.WriteString(p.Label)
			w.WriteInt64(int64(len(p.Replicates)))
			w.WriteString(formatFloat(mean))
			w.WriteString(formatFloat(stddev))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteBlocks emits the `.blk` file (spec §4.9 item 3, gated by the
// caller on print_blocks): `chr  start  end  overlap  pwd` per block,
// already sorted by (chr, start) via jackknife.Blocks.All.
func WriteBlocks(ctx context.Context, path string, blocks []*jackknife.Block) error {
	return writeTSV(ctx, path, func(w *tsv.Writer) error {
		w.WriteString("chr")
		w.WriteString("start")
		w.WriteString("end")
		w.WriteString("overlap")
		w.WriteString("pwd")
		if err := w.EndLine(); err != nil {
			return err
		}
		for _, b := range blocks {
			w.WriteString(b.Chr.String())
			w.WriteInt64(int64(b.Start))
			w.WriteInt64(int64(b.End))
			w.WriteInt64(int64(b.SiteCounts))
			w.WriteInt64(int64(b.PwdCounts))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return nil
	})
}
