package simengine

import (
	"bufio"
	"math/rand"
	"strings"
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/genotype"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/MaelLefeuvre/grups-rs/pedigree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trioPedigree = `
INDIVIDUALS
father
mother
child

RELATIONSHIPS
child=repro(father,mother)

COMPARISONS
father_child=compare(father,child)
`

// fakeBackend is an in-memory genotype.Backend fixture: a fixed genotype
// per (coordinate, sample id) and a fixed population allele frequency,
// independent of Seek ordering (unlike vcfreader, which this test does
// not need to exercise).
type fakeBackend struct {
	pos       coord.Position
	genotypes map[string][2]genome.GenotypeCode
	af        float64
}

func (b *fakeBackend) Kind() genotype.Kind { return genotype.Fst }

func (b *fakeBackend) Seek(target coord.Coordinate) error {
	b.pos = target.Pos
	return nil
}

func (b *fakeBackend) Alleles(tag panel.SampleTag) ([2]genome.GenotypeCode, error) {
	gt, ok := b.genotypes[tag.ID]
	if !ok {
		return [2]genome.GenotypeCode{}, grupserr.Newf(grupserr.MissingResource, "fakeBackend: no genotype for %q", tag.ID)
	}
	return gt, nil
}

func (b *fakeBackend) PopAF(pop string) (float64, error) {
	return b.af, nil
}

func buildPedigree(t *testing.T) *pedigree.Pedigree {
	t.Helper()
	ped, err := pedigree.Parse(bufio.NewScanner(strings.NewReader(trioPedigree)))
	require.NoError(t, err)
	return ped
}

func buildPanel(t *testing.T) *panel.ReferencePanel {
	t.Helper()
	p := panel.NewReferencePanel()
	p.Add(panel.NewSampleTag("S1", panel.SexUnknown), "EUR", "EUR")
	p.Add(panel.NewSampleTag("S2", panel.SexUnknown), "EUR", "EUR")
	return p
}

func TestTrioSimulationAccumulatesOverlap(t *testing.T) {
	ped := buildPedigree(t)
	gmap := geneticmap.New() // empty: RecombProb always 0, no crossover

	backend := &fakeBackend{
		genotypes: map[string][2]genome.GenotypeCode{
			"S1": {genome.CodeRef, genome.CodeRef},
			"S2": {genome.CodeAlt, genome.CodeAlt},
		},
		af: 0.5,
	}

	cfg := Config{
		Template:            ped,
		GeneticMap:          gmap,
		Panel:               buildPanel(t),
		Population:          "EUR",
		SNPDownsamplingRate: ConstParam(0),
		AFDownsamplingRate:  ConstParam(0),
	}
	engine := New(cfg, 4)

	sites := []Site{
		{Coordinate: coord.Coordinate{Chr: 1, Pos: 1000}},
		{Coordinate: coord.Coordinate{Chr: 1, Pos: 2000}},
		{Coordinate: coord.Coordinate{Chr: 1, Pos: 3000}},
	}
	results, err := engine.Run(sites, []genotype.Backend{backend, backend}, 42)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		require.Len(t, r.Pwd, 1)
		assert.Equal(t, uint64(len(sites)), r.Pwd[0].Overlap)
	}
}

func TestSNPDownsamplingSkipsSites(t *testing.T) {
	ped := buildPedigree(t)
	gmap := geneticmap.New()
	backend := &fakeBackend{
		genotypes: map[string][2]genome.GenotypeCode{
			"S1": {genome.CodeRef, genome.CodeRef},
			"S2": {genome.CodeAlt, genome.CodeAlt},
		},
		af: 0.5,
	}
	cfg := Config{
		Template:            ped,
		GeneticMap:          gmap,
		Panel:               buildPanel(t),
		Population:          "EUR",
		SNPDownsamplingRate: ConstParam(1), // always skip
		AFDownsamplingRate:  ConstParam(0),
	}
	engine := New(cfg, 1)
	sites := []Site{{Coordinate: coord.Coordinate{Chr: 1, Pos: 1000}}}
	results, err := engine.Run(sites, []genotype.Backend{backend}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), results[0].Pwd[0].Overlap)
}

func TestAFDownsamplingSubstitutesFounderGenotype(t *testing.T) {
	ped := buildPedigree(t)
	gmap := geneticmap.New()
	backend := &fakeBackend{af: 1.0} // Alleles lookup would fail; AF downsampling always bypasses it
	cfg := Config{
		Template:            ped,
		GeneticMap:          gmap,
		Panel:               buildPanel(t),
		Population:          "EUR",
		SNPDownsamplingRate: ConstParam(0),
		AFDownsamplingRate:  ConstParam(1), // always substitute
	}
	engine := New(cfg, 1)
	sites := []Site{{Coordinate: coord.Coordinate{Chr: 1, Pos: 1000}}}
	results, err := engine.Run(sites, []genotype.Backend{backend}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), results[0].Pwd[0].Overlap)
}

func TestPedParamConstAlwaysSamplesSameValue(t *testing.T) {
	p := ConstParam(0.3)
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 0.3, p.Sample(rng))
}

func TestParamFromValuesRejectsWrongLength(t *testing.T) {
	_, err := ParamFromValues([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestContaminantLocalAF(t *testing.T) {
	backend := &fakeBackend{
		genotypes: map[string][2]genome.GenotypeCode{
			"S1": {genome.CodeRef, genome.CodeAlt},
			"S2": {genome.CodeAlt, genome.CodeAlt},
		},
	}
	c := Contaminant{Tags: []panel.SampleTag{
		panel.NewSampleTag("S1", panel.SexUnknown),
		panel.NewSampleTag("S2", panel.SexUnknown),
	}}
	af, err := c.LocalAF(backend)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, af, 1e-9) // 3 alt out of 4 alleles
}
