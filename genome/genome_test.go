package genome

import (
	"math/rand"
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChromosome() Chromosome {
	chr := NewChromosome(0, 1, 10_000_000)
	chr.AddLocus(1000, [2]GenotypeCode{CodeRef, CodeAlt}, 0.3)
	chr.AddLocus(2000, [2]GenotypeCode{CodeAlt, CodeRef}, 0.4)
	chr.AddLocus(3000, [2]GenotypeCode{CodeRef, CodeRef}, 0.5)
	return chr
}

func TestMeiosisPreservesLociAndPositions(t *testing.T) {
	chr := buildChromosome()
	gmap := geneticmap.New()
	gmap.AddLine(1, 10_000_000, 1.0)
	rng := rand.New(rand.NewSource(7))

	chromatid := chr.Meiosis(gmap, rng)
	require.Len(t, chromatid.Alleles, 3)
	assert.Equal(t, coord.Position(1000), chromatid.Alleles[0].Pos)
	assert.Equal(t, coord.Position(2000), chromatid.Alleles[1].Pos)
	assert.Equal(t, coord.Position(3000), chromatid.Alleles[2].Pos)
	for _, a := range chromatid.Alleles {
		assert.True(t, a.Code == CodeRef || a.Code == CodeAlt)
	}
}

func TestMeiosisNoRecombinationKeepsSingleStrand(t *testing.T) {
	chr := buildChromosome()
	gmap := geneticmap.New() // empty map: RecombProb always 0
	rng := rand.New(rand.NewSource(1))

	chromatid := chr.Meiosis(gmap, rng)
	// With zero recombination probability throughout, every allele must
	// come from the same parental strand (index 0 or index 1 for all loci).
	fromStrand0 := chromatid.Alleles[0].Code == chr.loci[0].Alleles[0]
	for i, a := range chromatid.Alleles {
		if fromStrand0 {
			assert.Equal(t, chr.loci[i].Alleles[0], a.Code)
		} else {
			assert.Equal(t, chr.loci[i].Alleles[1], a.Code)
		}
	}
}

func TestFertilizeRebuildsDiploidLoci(t *testing.T) {
	chr := buildChromosome()
	gmap := geneticmap.New()
	gmap.AddLine(1, 10_000_000, 0) // zero rate: deterministic, no crossover

	rng1 := rand.New(rand.NewSource(2))
	rng2 := rand.New(rand.NewSource(3))

	g1 := NewGamete()
	g1.AddChromatid(chr.Meiosis(gmap, rng1))
	g2 := NewGamete()
	g2.AddChromatid(chr.Meiosis(gmap, rng2))

	child := g1.Fertilize(g2)
	chromosomes := child.Chromosomes()
	require.Len(t, chromosomes, 1)
	require.Equal(t, 3, chromosomes[0].SNPLen())
	for i, locus := range chromosomes[0].Loci() {
		assert.Equal(t, chr.loci[i].Pos, locus.Pos)
		assert.Equal(t, chr.loci[i].AF, locus.AF)
	}
}

func TestAddChromosomeIdempotent(t *testing.T) {
	g := NewGenome()
	g.AddChromosome(0, 1, 1000)
	g.AddChromosome(0, 1, 9999) // second call for the same name is a no-op
	require.Len(t, g.Chromosomes(), 1)
	assert.Equal(t, coord.Position(1000), g.ChromosomeMut(1).Length)
}
