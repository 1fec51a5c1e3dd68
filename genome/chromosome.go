package genome

import (
	"math/rand"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
)

// Chromosome holds one individual's loci on a single chromosome, prior to
// meiosis (chromosome.rs).
type Chromosome struct {
	Index  int
	Name   coord.ChrIdx
	Length coord.Position
	loci   []Locus
}

// NewChromosome returns an empty chromosome.
func NewChromosome(index int, name coord.ChrIdx, length coord.Position) Chromosome {
	return Chromosome{Index: index, Name: name, Length: length}
}

// AddLocus appends a variable site in position order as it is read from
// the genotype backend; callers are expected to supply loci in
// ascending-position order, matching the teacher's streaming readers.
func (c *Chromosome) AddLocus(pos coord.Position, alleles [2]GenotypeCode, af float64) {
	c.loci = append(c.loci, NewLocus(pos, alleles, af))
}

// SNPLen returns the number of variable sites held on this chromosome.
func (c *Chromosome) SNPLen() int { return len(c.loci) }

// IsEmpty reports whether the chromosome carries no loci.
func (c *Chromosome) IsEmpty() bool { return len(c.loci) == 0 }

// Loci returns the chromosome's loci in position order.
func (c *Chromosome) Loci() []Locus { return c.loci }

// Meiosis draws one recombined Chromatid from this chromosome's loci,
// sweeping positions in order and flipping a "currently recombining"
// latch whenever a draw beats the cumulative recombination probability
// since the previous locus (spec §4.6, chromosome.rs's meiosis). The
// resulting chromatid is the upper or lower strand with equal
// probability, picked independently of the recombination sweep.
func (c *Chromosome) Meiosis(gmap *geneticmap.GeneticMap, rng *rand.Rand) Chromatid {
	gamete := make([]Locus, len(c.loci))
	copy(gamete, c.loci)

	var previous coord.Position
	var latch RecombLatch
	for i := range gamete {
		locus := &gamete[i]
		if latch.Flip(gmap, c.Name, previous, locus.Pos, rng) {
			locus.Crossover()
		}
		previous = locus.Pos
	}

	strand := 0
	if rng.Float64() < 0.5 {
		strand = 1
	}
	alleles := make([]Allele, len(gamete))
	for i, locus := range gamete {
		alleles[i] = Allele{Pos: locus.Pos, Code: locus.Alleles[strand], AF: locus.AF}
	}
	return Chromatid{Index: c.Index, Name: c.Name, Length: c.Length, Alleles: alleles}
}
