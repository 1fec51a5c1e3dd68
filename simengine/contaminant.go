package simengine

import (
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/genotype"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/panel"
)

// Contaminant is the set of reference-panel sample tags contaminating one
// individual's reads. Its local allele frequency is the average of every
// tag's own alleles at the current site, not a single fixed tag (spec
// SUPPLEMENTED FEATURES, contaminant.rs's Contaminant/compute_local_cont_af).
type Contaminant struct {
	Tags []panel.SampleTag
}

// LocalAF computes this contaminant's averaged local alt-allele frequency
// at the coordinate backend was last Seek'd to, by tallying each tag's two
// raw 0/1 genotype codes (contaminant.rs's compute_local_cont_af, which
// panics on any genotype code other than 0 or 1 -- multiallelic sites are
// already excluded upstream by both genotype backends).
func (c Contaminant) LocalAF(backend genotype.Backend) (float64, error) {
	var ref, alt int
	for _, tag := range c.Tags {
		alleles, err := backend.Alleles(tag)
		if err != nil {
			return 0, err
		}
		for _, a := range alleles {
			switch a {
			case genome.CodeRef:
				ref++
			case genome.CodeAlt:
				alt++
			}
		}
	}
	if ref+alt == 0 {
		return 0, grupserr.New(grupserr.MissingResource, "simengine: contaminant set is empty")
	}
	return float64(alt) / float64(ref+alt), nil
}
