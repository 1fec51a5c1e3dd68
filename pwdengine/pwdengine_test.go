package pwdengine

import (
	"math/rand"
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/jackknife"
	"github.com/MaelLefeuvre/grups-rs/pileupfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nuc(b coord.Allele) coord.Nucleotide { return coord.Nucleotide{Base: b, Qual: 30} }

func TestNewIndividualDefaultName(t *testing.T) {
	ind := NewIndividual("", 2, 0)
	assert.Equal(t, "Ind2", ind.Name)
}

func TestNewIndividualExplicitName(t *testing.T) {
	ind := NewIndividual("sample-A", 0, 1)
	assert.Equal(t, "sample-A", ind.Name)
}

func TestProcessLineAccumulatesOverlapAndMismatch(t *testing.T) {
	blocks := jackknife.New([]jackknife.ChromosomeLength{{Chr: 1, Length: 10000}}, 1000)
	cmp := Comparison{
		Label: "A-B",
		Ind1:  NewIndividual("A", 0, 1),
		Ind2:  NewIndividual("B", 1, 1),
	}
	engine := New([]Comparison{cmp}, blocks, pileupfmt.FilterPolicy{}, nil, rand.New(rand.NewSource(1)))

	line := pileupfmt.Line{
		Coordinate: coord.Coordinate{Chr: 1, Pos: 500},
		Ref:        coord.AlleleA,
		Samples: []pileupfmt.Pileup{
			{Depth: 2, Nucleotides: []coord.Nucleotide{nuc(coord.AlleleA), nuc(coord.AlleleA)}},
			{Depth: 2, Nucleotides: []coord.Nucleotide{nuc(coord.AlleleG), nuc(coord.AlleleG)}},
		},
	}
	require.NoError(t, engine.ProcessLine(line))
	result := engine.PairResult(0)
	assert.Equal(t, uint64(1), result.Overlap)
	assert.Equal(t, uint64(1), result.Sum) // A and G always mismatch
}

func TestProcessLineSkipsOnInsufficientDepth(t *testing.T) {
	blocks := jackknife.New([]jackknife.ChromosomeLength{{Chr: 1, Length: 10000}}, 1000)
	cmp := Comparison{
		Label: "A-B",
		Ind1:  NewIndividual("A", 0, 2),
		Ind2:  NewIndividual("B", 1, 1),
	}
	engine := New([]Comparison{cmp}, blocks, pileupfmt.FilterPolicy{}, nil, rand.New(rand.NewSource(1)))

	line := pileupfmt.Line{
		Coordinate: coord.Coordinate{Chr: 1, Pos: 500},
		Ref:        coord.AlleleA,
		Samples: []pileupfmt.Pileup{
			{Depth: 1, Nucleotides: []coord.Nucleotide{nuc(coord.AlleleA)}},
			{Depth: 2, Nucleotides: []coord.Nucleotide{nuc(coord.AlleleG), nuc(coord.AlleleG)}},
		},
	}
	require.NoError(t, engine.ProcessLine(line))
	result := engine.PairResult(0)
	assert.Equal(t, uint64(0), result.Overlap)
}

func TestProcessLineSelfComparisonRequiresDepthTwo(t *testing.T) {
	blocks := jackknife.New([]jackknife.ChromosomeLength{{Chr: 1, Length: 10000}}, 1000)
	self := NewIndividual("A", 0, 1)
	cmp := Comparison{Label: "A-A", Ind1: self, Ind2: self, SelfComparison: true}
	engine := New([]Comparison{cmp}, blocks, pileupfmt.FilterPolicy{}, nil, rand.New(rand.NewSource(1)))

	line := pileupfmt.Line{
		Coordinate: coord.Coordinate{Chr: 1, Pos: 500},
		Ref:        coord.AlleleA,
		Samples: []pileupfmt.Pileup{
			{Depth: 1, Nucleotides: []coord.Nucleotide{nuc(coord.AlleleA)}},
		},
	}
	require.NoError(t, engine.ProcessLine(line))
	assert.Equal(t, uint64(0), engine.PairResult(0).Overlap) // depth < 2: this comparison is skipped
}

func TestProcessLineSelfComparisonDrawsWithoutReplacement(t *testing.T) {
	blocks := jackknife.New([]jackknife.ChromosomeLength{{Chr: 1, Length: 10000}}, 1000)
	self := NewIndividual("A", 0, 2)
	cmp := Comparison{Label: "A-A", Ind1: self, Ind2: self, SelfComparison: true}
	engine := New([]Comparison{cmp}, blocks, pileupfmt.FilterPolicy{}, nil, rand.New(rand.NewSource(1)))

	line := pileupfmt.Line{
		Coordinate: coord.Coordinate{Chr: 1, Pos: 500},
		Ref:        coord.AlleleA,
		Samples: []pileupfmt.Pileup{
			{Depth: 2, Nucleotides: []coord.Nucleotide{nuc(coord.AlleleA), nuc(coord.AlleleG)}},
		},
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, engine.ProcessLine(line))
	}
	assert.Equal(t, uint64(20), engine.PairResult(0).Overlap)
	assert.Equal(t, uint64(20), engine.PairResult(0).Sum) // always draws one A and one G: always a mismatch
}
