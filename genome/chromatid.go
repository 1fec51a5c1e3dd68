package genome

import "github.com/MaelLefeuvre/grups-rs/coord"

// Chromatid is the single-stranded product of meiosis: one allele per
// locus, still tagged with the chromosome it was drawn from (chromatid.rs).
type Chromatid struct {
	Index   int
	Name    coord.ChrIdx
	Length  coord.Position
	Alleles []Allele
}

// Gamete collects one Chromatid per autosome/sex-chromosome, keyed by
// chromosome name, mirroring gamete.rs's BTreeMap<u8, Chromatid> (a Go map
// gives the same keyed-by-name access; ordering is restored explicitly
// wherever iteration order matters, e.g. Fertilize).
type Gamete struct {
	chromatids map[coord.ChrIdx]Chromatid
	order      []coord.ChrIdx
}

// NewGamete returns an empty gamete.
func NewGamete() *Gamete {
	return &Gamete{chromatids: make(map[coord.ChrIdx]Chromatid)}
}

// AddChromatid registers chromatid under its chromosome name, reporting
// whether the name was previously unoccupied (gamete.rs's add_chromatid).
func (g *Gamete) AddChromatid(chromatid Chromatid) bool {
	if _, exists := g.chromatids[chromatid.Name]; exists {
		return false
	}
	g.chromatids[chromatid.Name] = chromatid
	g.order = append(g.order, chromatid.Name)
	return true
}

// Fertilize merges this gamete with other, chromatid by chromatid and
// locus by locus in the order chromatids were added, rebuilding diploid
// loci from the two haploid allele streams (spec §4.6, gamete.rs's
// fertilize). Chromatids are paired positionally, as in the Rust source's
// zipped iteration; mismatched gametes (different chromosome sets or
// locus counts) are a programmer error, not a runtime one, so this panics
// the same way the Rust assert_eq! calls do.
func (g *Gamete) Fertilize(other *Gamete) *Genome {
	genome := NewGenome()
	for i, name := range g.order {
		c1 := g.chromatids[name]
		c2 := other.chromatids[other.order[i]]
		if c1.Index != c2.Index || c1.Name != c2.Name || c1.Length != c2.Length {
			panic("genome: Fertilize: mismatched chromatid pair")
		}
		genome.AddChromosome(c1.Index, c1.Name, c1.Length)
		chr := genome.ChromosomeMut(c1.Name)
		for j, a1 := range c1.Alleles {
			a2 := c2.Alleles[j]
			if a1.Pos != a2.Pos || a1.AF != a2.AF {
				panic("genome: Fertilize: mismatched locus pair")
			}
			chr.AddLocus(a1.Pos, [2]GenotypeCode{a1.Code, a2.Code}, a1.AF)
		}
	}
	return genome
}
