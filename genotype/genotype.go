// Package genotype defines the shared genotype-backend contract used by
// pedigree simulation to draw founder alleles and population allele
// frequencies at a target coordinate (spec §4.8).
//
// Grounded on original_source/src/grups-io/src/read/genotype_reader/mod.rs's
// GenotypeReader trait (get_alleles/get_pop_allele_frequency/fetch_input_files).
// Backend is a Go interface implemented by two concrete backend types
// (vcfreader.Reader and fstreader.Reader); calls go through ordinary
// interface dispatch, and Kind reports which of the two a value is
// (encoding/bam vs. encoding/pam follow the same two-concrete-types
// shape).
package genotype

import (
	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/panel"
)

// Kind selects which concrete backend a Backend value wraps.
type Kind int

const (
	Vcf Kind = iota
	Fst
)

// Backend is the shared genotype-source contract: seek a target
// coordinate, then read one sample's alleles or one population's allele
// frequency at that coordinate.
type Backend interface {
	// Kind reports which concrete backend this is.
	Kind() Kind

	// Seek advances (VCF) or repositions (FST) the backend onto target.
	// The VCF backend returns an error if the coordinate cannot be found;
	// the FST backend never fails here, and a missing coordinate shows up
	// as an error from Alleles/PopAF instead.
	Seek(target coord.Coordinate) error

	// Alleles returns the two 0/1 genotype codes tag carries at the
	// coordinate last passed to Seek (0 = REF, 1 = ALT; spec §4.8).
	Alleles(tag panel.SampleTag) ([2]genome.GenotypeCode, error)

	// PopAF returns the population allele frequency annotated for pop at
	// the coordinate last passed to Seek.
	PopAF(pop string) (float64, error)
}
