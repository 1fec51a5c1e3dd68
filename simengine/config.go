package simengine

import (
	"math/rand"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/MaelLefeuvre/grups-rs/pedigree"
	"github.com/MaelLefeuvre/grups-rs/pileupfmt"
)

// Config is the read-only template shared by every replicate worker: the
// pedigree structure, the recombination map, the founder population, and
// the simulation parameters declared by the user (spec §4.7, §5 "shared,
// read-only").
type Config struct {
	Template   *pedigree.Pedigree
	GeneticMap *geneticmap.GeneticMap
	Panel      *panel.ReferencePanel
	Population string // population founders are drawn from, without replacement, per replicate

	SNPDownsamplingRate PedParam
	AFDownsamplingRate  PedParam

	// SeqErrorRate and ContamRate are sampled once per replicate, per
	// individual (generalizing pedigree_params.rs's fixed 2-slot
	// [f64;2] arrays to this port's arbitrary-size arena pedigree; an
	// individual absent from either map never has its reads perturbed
	// by that model). ProfileIndex gives the real pileup sample column
	// whose observed phred drives an individual's error probability
	// when it has no declared SeqErrorRate (spec §4.7 item 4's
	// "per-site phred from the real pileup when seq_error_rate is
	// unset"); an individual absent from ProfileIndex simply never
	// errors when its SeqErrorRate is also unset.
	SeqErrorRate map[pedigree.IndividualID]PedParam
	ContamRate   map[pedigree.IndividualID]PedParam
	Contaminants map[pedigree.IndividualID]Contaminant
	ProfileIndex map[pedigree.IndividualID]int
}

// ReplicateParams holds one replicate's sampled downsampling rates and
// per-individual error/contamination rates, fixed for that replicate's
// entire run (pedigree_params.rs's PedigreeParams; §9's design note that
// per-replicate parameters are sampled once, not per-site).
type ReplicateParams struct {
	SNPDownsamplingRate float64
	AFDownsamplingRate  float64
	SeqErrorRate        map[pedigree.IndividualID]float64
	ContamRate          map[pedigree.IndividualID]float64
}

func (cfg *Config) sampleParams(rng *rand.Rand) ReplicateParams {
	p := ReplicateParams{
		SNPDownsamplingRate: cfg.SNPDownsamplingRate.Sample(rng),
		AFDownsamplingRate:  cfg.AFDownsamplingRate.Sample(rng),
		SeqErrorRate:        make(map[pedigree.IndividualID]float64, len(cfg.SeqErrorRate)),
		ContamRate:          make(map[pedigree.IndividualID]float64, len(cfg.ContamRate)),
	}
	for id, param := range cfg.SeqErrorRate {
		p.SeqErrorRate[id] = param.Sample(rng)
	}
	for id, param := range cfg.ContamRate {
		p.ContamRate[id] = param.Sample(rng)
	}
	return p
}

// Site is one observed coordinate forwarded from the PWD pass: the
// genotype backend is Seek'd to it before simulation, and its real
// per-sample pileups feed the per-site sequencing-error phred fallback
// (spec §4.7 item 4).
type Site struct {
	Coordinate coord.Coordinate
	Pileups    []pileupfmt.Pileup
}
