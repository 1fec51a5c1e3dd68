package genome

import "github.com/MaelLefeuvre/grups-rs/coord"

// Genome is an individual's diploid genotype at every genotyped locus,
// organized by chromosome (the fertilization target of gamete.rs's
// fertilize, and the input to a subsequent round of meiosis).
type Genome struct {
	byName map[coord.ChrIdx]*Chromosome
	order  []coord.ChrIdx
}

// NewGenome returns an empty genome.
func NewGenome() *Genome {
	return &Genome{byName: make(map[coord.ChrIdx]*Chromosome)}
}

// AddChromosome registers an empty chromosome under name, if not already
// present.
func (g *Genome) AddChromosome(index int, name coord.ChrIdx, length coord.Position) {
	if _, exists := g.byName[name]; exists {
		return
	}
	chr := NewChromosome(index, name, length)
	g.byName[name] = &chr
	g.order = append(g.order, name)
}

// ChromosomeMut returns the chromosome registered under name, or nil.
func (g *Genome) ChromosomeMut(name coord.ChrIdx) *Chromosome {
	return g.byName[name]
}

// Chromosomes returns the genome's chromosomes in registration order.
func (g *Genome) Chromosomes() []*Chromosome {
	out := make([]*Chromosome, len(g.order))
	for i, name := range g.order {
		out[i] = g.byName[name]
	}
	return out
}
