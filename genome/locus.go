// Package genome models the per-individual genome: chromosomes, loci,
// chromatids and gametes, and the meiosis/fertilization operations that
// drive pedigree simulation (spec §3, §4.6).
//
// Grounded on original_source/src/genome/src/{locus,chromatid,alleles,
// chromosome,gamete}.rs: field layout, the meiosis recombination-latch
// sweep and fertilization's zipped-chromatid merge are reproduced exactly,
// translated from Rust's shared-nothing value types into Go (Genome holds
// its Chromosomes in a map keyed by chromosome name, plus a slice that
// records registration order).
//
// Allele values carried by loci/chromatids are GenotypeCode (0 or 1),
// not decoded nucleotide bases: spec §4.8 states genotype backends
// "return two 0/1 alleles", and original_source/src/pedigree_sims/src/contaminant.rs's
// compute_local_cont_af matches its reader's allele values literally
// against the integers 0 and 1 (ref/alt), confirming this is the wire
// contract simulated genomes are built from, not an ACGT-decoded one.
package genome

import "github.com/MaelLefeuvre/grups-rs/coord"

// GenotypeCode is a single allele expressed relative to a site's
// reference/alternate pair: 0 selects REF, 1 selects ALT.
type GenotypeCode byte

const (
	CodeRef GenotypeCode = 0
	CodeAlt GenotypeCode = 1
)

// Locus is one variable site on a chromosome: its position, the pair of
// genotype codes carried on each chromatid, and a population allele
// frequency used downstream for contamination/error simulation (spec §3).
type Locus struct {
	Pos     coord.Position
	Alleles [2]GenotypeCode
	AF      float64
}

// NewLocus builds a Locus from a position, a genotype-code pair and a
// population allele frequency.
func NewLocus(pos coord.Position, alleles [2]GenotypeCode, af float64) Locus {
	return Locus{Pos: pos, Alleles: alleles, AF: af}
}

// Crossover swaps the two alleles in place, simulating a strand switch
// during meiosis (locus.rs's crossover).
func (l *Locus) Crossover() {
	l.Alleles[0], l.Alleles[1] = l.Alleles[1], l.Alleles[0]
}

// Allele is one parental genotype code at a fixed position, carrying its
// own copy of the site's population allele frequency (alleles.rs's
// Allele).
type Allele struct {
	Pos  coord.Position
	Code GenotypeCode
	AF   float64
}
