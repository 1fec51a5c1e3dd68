// Package pwdengine implements the observed pairwise-mismatch (PWD)
// engine: a single streaming pass over multi-sample pileup lines that
// draws one random allele per compared individual and tallies overlap and
// mismatch counts per pair and per jackknife block (spec §4.4).
//
// Grounded on original_source/src/pwd_from_stdin/src/comparisons/{mod.rs,
// individual.rs,error.rs}: Individual's name/index/min_depth fields and
// its satisfiable_depth predicate are reproduced verbatim; the
// MissingBlock failure on an unregistered coordinate keeps the Rust
// source's ComparisonError naming (translated into a grupserr.Corruption,
// §7).
package pwdengine

import (
	"math/rand"
	"strconv"

	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/jackknife"
	"github.com/MaelLefeuvre/grups-rs/pileupfmt"
	"github.com/MaelLefeuvre/grups-rs/stats"
)

const undefinedLabelPrefix = "Ind"

// Individual is one pileup column participating in one or more
// comparisons (individual.rs).
type Individual struct {
	Name     string
	Index    int // column index into Line.Samples
	MinDepth uint16
}

// NewIndividual builds an Individual, defaulting its name to "Ind<index>"
// when name is empty (individual.rs's Individual::new).
func NewIndividual(name string, index int, minDepth uint16) Individual {
	if name == "" {
		name = undefinedLabelPrefix + strconv.Itoa(index)
	}
	return Individual{Name: name, Index: index, MinDepth: minDepth}
}

// SatisfiableDepth reports whether pileups[ind.Index] meets ind.MinDepth.
func (ind Individual) SatisfiableDepth(pileups []pileupfmt.Pileup) bool {
	return uint16(pileups[ind.Index].Depth) >= ind.MinDepth
}

// Comparison is one requested pair of individuals (§3's "comparison
// label, (ind A, ind B, self_comparison?)").
type Comparison struct {
	Label          string
	Ind1, Ind2     Individual
	SelfComparison bool
}

// Engine accumulates per-pair and per-block PWD statistics over a stream
// of pileup lines.
type Engine struct {
	comparisons []Comparison
	blocks      *jackknife.Blocks
	policy      pileupfmt.FilterPolicy
	targets     *pileupfmt.Targets
	rng         *rand.Rand

	pairTotals []stats.Pwd
}

// New builds an Engine over comparisons, backed by blocks for jackknife
// accounting, filtering lines per policy/targets, and drawing from rng.
func New(comparisons []Comparison, blocks *jackknife.Blocks, policy pileupfmt.FilterPolicy, targets *pileupfmt.Targets, rng *rand.Rand) *Engine {
	return &Engine{
		comparisons: comparisons,
		blocks:      blocks,
		policy:      policy,
		targets:     targets,
		rng:         rng,
		pairTotals:  make([]stats.Pwd, len(comparisons)),
	}
}

// ProcessLine applies one pileup line to the engine (spec §4.4, steps 1-3).
// The whole line is skipped unless every compared individual meets its
// minimum depth; a self-comparison with fewer than 2 kept bases is then
// skipped on its own, without affecting the other comparisons on the line.
func (e *Engine) ProcessLine(line pileupfmt.Line) error {
	for _, cmp := range e.comparisons {
		if !cmp.Ind1.SatisfiableDepth(line.Samples) || !cmp.Ind2.SatisfiableDepth(line.Samples) {
			return nil
		}
	}
	keep, err := e.policy.Keep(e.targets, line.Coordinate, line.Ref)
	if err != nil {
		return err
	}
	if !keep {
		return nil
	}

	var block *jackknife.Block
	for i, cmp := range e.comparisons {
		if block == nil {
			block, err = e.blocks.FindBlock(line.Coordinate.Chr, line.Coordinate.Pos)
			if err != nil {
				return grupserr.Wrapf(err, grupserr.Corruption, "pwdengine: no jackknife block for %s", line.Coordinate)
			}
		}
		mismatch, drew, err := e.draw(line, cmp)
		if err != nil {
			return err
		}
		if !drew {
			continue
		}
		e.pairTotals[i].Overlap++
		block.AddCount()
		if mismatch {
			e.pairTotals[i].Sum++
			block.AddPwd()
		}
	}
	return nil
}

// draw performs the per-comparison nucleotide draw(s) and reports
// whether the two sampled alleles mismatch. drew is false when a
// self-comparison's depth was insufficient (that one comparison is
// skipped for this line, per spec §9(a); other comparisons on the same
// line are unaffected).
func (e *Engine) draw(line pileupfmt.Line, cmp Comparison) (mismatch, drew bool, err error) {
	pileupA := line.Samples[cmp.Ind1.Index]
	if cmp.SelfComparison && cmp.Ind1.Index == cmp.Ind2.Index {
		if pileupA.Depth < 2 {
			return false, false, nil
		}
		i, j := drawTwoDistinct(e.rng, pileupA.Depth)
		return pileupA.Nucleotides[i].Base != pileupA.Nucleotides[j].Base, true, nil
	}
	pileupB := line.Samples[cmp.Ind2.Index]
	i := e.rng.Intn(pileupA.Depth)
	j := e.rng.Intn(pileupB.Depth)
	return pileupA.Nucleotides[i].Base != pileupB.Nucleotides[j].Base, true, nil
}

// drawTwoDistinct draws two distinct indices in [0, n) without
// replacement.
func drawTwoDistinct(rng *rand.Rand, n int) (int, int) {
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

// PairResult returns the accumulated Pwd counters for the comparison at
// index i.
func (e *Engine) PairResult(i int) stats.Pwd { return e.pairTotals[i] }

// Comparisons returns the engine's configured comparisons.
func (e *Engine) Comparisons() []Comparison { return e.comparisons }
