package simengine

import (
	"math/rand"
	"sync"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/genotype"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/MaelLefeuvre/grups-rs/pedigree"
	"github.com/MaelLefeuvre/grups-rs/stats"
)

// Engine drives a fixed number of Monte-Carlo replicates over a Pedigree
// template and a shared, ordered site stream (spec §4.7, §5).
type Engine struct {
	cfg        Config
	order      []pedigree.IndividualID
	replicates int
}

// New returns an Engine that will run the given number of replicates
// against cfg.
func New(cfg Config, replicates int) *Engine {
	return &Engine{cfg: cfg, order: topoOrder(cfg.Template), replicates: replicates}
}

// topoOrder returns every individual in parents-before-children order, so
// a single forward pass can assume every individual's parents have
// already had their genotype assigned for the current site (spec §4.7
// item 3: "for each offspring in topological order"). Acyclicity is
// already a Pedigree construction invariant, so a plain memoized
// depth-first walk suffices.
func topoOrder(ped *pedigree.Pedigree) []pedigree.IndividualID {
	inds := ped.Individuals()
	order := make([]pedigree.IndividualID, 0, len(inds))
	visited := make(map[pedigree.IndividualID]bool, len(inds))
	var visit func(id pedigree.IndividualID)
	visit = func(id pedigree.IndividualID) {
		if visited[id] {
			return
		}
		visited[id] = true
		ind := ped.Individual(id)
		if ind.Parents != nil {
			visit(ind.Parents[0])
			visit(ind.Parents[1])
		}
		order = append(order, id)
	}
	for _, ind := range inds {
		visit(ind.ID)
	}
	return order
}

// cursorKey addresses one gamete's recombination state: a given offspring
// drawing from a given parental slot (0 or 1) on a given chromosome.
type cursorKey struct {
	offspring  pedigree.IndividualID
	parentSlot int
	chr        coord.ChrIdx
}

// gameteCursor is the per-replicate memoised meiosis state for one
// cursorKey: the previously visited position, the "currently recombining"
// latch, and the initial strand chosen the first time this gamete was
// produced (spec §4.7 "Memoisation").
type gameteCursor struct {
	started       bool
	initialStrand int
	latch         genome.RecombLatch
	prevPos       coord.Position
}

// replicateState is the mutable, lock-free snapshot owned by a single
// worker for the duration of one replicate (§9's "replicate-local
// snapshot" design note): sampled parameters, drawn founder tags, the
// current per-chromosome genotype of every individual, meiosis cursors,
// and the accumulating per-comparison simulated Pwd counters.
type replicateState struct {
	rng         *rand.Rand
	params      ReplicateParams
	founderTags map[pedigree.IndividualID]panel.SampleTag
	genotypes   map[pedigree.IndividualID]map[coord.ChrIdx][2]genome.GenotypeCode
	cursors     map[cursorKey]*gameteCursor
	results     []stats.Pwd
}

func newReplicate(cfg *Config, seed int64) (*replicateState, error) {
	rng := rand.New(rand.NewSource(seed))
	params := cfg.sampleParams(rng)

	var founders []pedigree.IndividualID
	for _, ind := range cfg.Template.Individuals() {
		if ind.IsFounder() {
			founders = append(founders, ind.ID)
		}
	}
	tags, err := cfg.Panel.SampleWithoutReplacement(cfg.Population, len(founders), rng)
	if err != nil {
		return nil, err
	}
	founderTags := make(map[pedigree.IndividualID]panel.SampleTag, len(founders))
	for i, id := range founders {
		founderTags[id] = tags[i]
	}

	return &replicateState{
		rng:         rng,
		params:      params,
		founderTags: founderTags,
		genotypes:   make(map[pedigree.IndividualID]map[coord.ChrIdx][2]genome.GenotypeCode),
		cursors:     make(map[cursorKey]*gameteCursor),
		results:     make([]stats.Pwd, len(cfg.Template.Comparisons())),
	}, nil
}

func (r *replicateState) genotype(id pedigree.IndividualID, chr coord.ChrIdx) ([2]genome.GenotypeCode, bool) {
	gt, ok := r.genotypes[id][chr]
	return gt, ok
}

func (r *replicateState) setGenotype(id pedigree.IndividualID, chr coord.ChrIdx, gt [2]genome.GenotypeCode) {
	m, ok := r.genotypes[id]
	if !ok {
		m = make(map[coord.ChrIdx][2]genome.GenotypeCode)
		r.genotypes[id] = m
	}
	m[chr] = gt
}

// drawFounder assigns ind's genotype at chr from its sampled SampleTag, or
// -- with probability AFDownsamplingRate -- from two independent
// Bernoulli(af) draws against the site's population allele frequency
// (spec §4.7 item 2).
func (r *replicateState) drawFounder(ind *pedigree.Individual, chr coord.ChrIdx, backend genotype.Backend, population string) error {
	if r.rng.Float64() < r.params.AFDownsamplingRate {
		af, err := backend.PopAF(population)
		if err != nil {
			return err
		}
		var gt [2]genome.GenotypeCode
		for i := range gt {
			if r.rng.Float64() < af {
				gt[i] = genome.CodeAlt
			}
		}
		r.setGenotype(ind.ID, chr, gt)
		return nil
	}
	gt, err := backend.Alleles(r.founderTags[ind.ID])
	if err != nil {
		return err
	}
	r.setGenotype(ind.ID, chr, gt)
	return nil
}

// meiosisStep lazily extends each parental gamete from its previously
// recorded position up to c and fertilizes the result, driving
// genome.RecombLatch (the same latch genome.Chromosome.Meiosis sweeps
// over a pre-loaded chromosome) one site at a time instead (spec §4.7
// item 3). It reports false if either parent has no genotype at this
// chromosome yet, in which case the caller skips the whole site for this
// replicate.
func (r *replicateState) meiosisStep(ind *pedigree.Individual, c coord.Coordinate, gmap *geneticmap.GeneticMap) bool {
	var diploid [2]genome.GenotypeCode
	for slot, parentID := range *ind.Parents {
		parentGT, ok := r.genotype(parentID, c.Chr)
		if !ok {
			return false
		}
		key := cursorKey{offspring: ind.ID, parentSlot: slot, chr: c.Chr}
		cur, exists := r.cursors[key]
		if !exists {
			cur = &gameteCursor{}
			r.cursors[key] = cur
		}
		if !cur.started {
			cur.started = true
			if r.rng.Float64() < 0.5 {
				cur.initialStrand = 1
			}
		} else {
			cur.latch.Flip(gmap, c.Chr, cur.prevPos, c.Pos, r.rng)
		}
		cur.prevPos = c.Pos

		strand := cur.initialStrand
		if cur.latch.Recombining() {
			strand = 1 - strand
		}
		diploid[slot] = parentGT[strand]
	}
	r.setGenotype(ind.ID, c.Chr, diploid)
	return true
}

// simBase is a symbolic simulated read outcome. The genotype backend
// contract (spec §4.8, confirmed against contaminant.rs) exposes only
// raw 0/1 REF/ALT codes, never decoded ACGT letters, so a biallelic
// site's "other" ACGT bases -- the ones an error draw can land on but
// that never match either known allele -- collapse to one symbolic
// value rather than four distinguishable letters. This preserves the
// comparison mismatch semantics §4.7 item 5 requires (same symbol
// matches, different symbols mismatch) without reconstructing base
// identities the backend never returns.
type simBase int

const (
	simRef simBase = iota
	simAlt
	simOther
)

// substituteError models "replace the drawn base with a uniformly-chosen
// different base from {A,C,G,T}" in simBase terms: of the 3 other ACGT
// letters, exactly one coincides with the site's other known allele, the
// remaining two collapse to simOther.
func substituteError(rng *rand.Rand, base simBase) simBase {
	if rng.Intn(3) != 0 {
		return simOther
	}
	if base == simRef {
		return simAlt
	}
	return simRef
}

// drawFromAF models a contamination substitution: "a base drawn from the
// contaminating population's local allele frequency (Bernoulli on alt_af)".
func drawFromAF(rng *rand.Rand, af float64) simBase {
	if rng.Float64() < af {
		return simAlt
	}
	return simRef
}

// drawRead simulates one sampled read from id's genotype at c: pick a
// strand uniformly, apply the sequencing-error model (per-individual
// rate, or the real pileup's phred when unset), then the contamination
// model (spec §4.7 item 4).
func (r *replicateState) drawRead(id pedigree.IndividualID, gt [2]genome.GenotypeCode, site Site, cfg *Config, backend genotype.Backend) (simBase, error) {
	strand := r.rng.Intn(2)
	base := simBase(gt[strand])

	errRate, hasRate := r.params.SeqErrorRate[id]
	if !hasRate {
		if idx, ok := cfg.ProfileIndex[id]; ok && idx < len(site.Pileups) {
			nucs := site.Pileups[idx].Nucleotides
			if len(nucs) > 0 {
				errRate = nucs[r.rng.Intn(len(nucs))].Qual.AsProb()
			}
		}
	}
	if errRate > 0 && r.rng.Float64() < errRate {
		base = substituteError(r.rng, base)
	}

	if contamRate, ok := r.params.ContamRate[id]; ok && contamRate > 0 && r.rng.Float64() < contamRate {
		if contaminant, ok := cfg.Contaminants[id]; ok {
			af, err := contaminant.LocalAF(backend)
			if err != nil {
				return 0, err
			}
			base = drawFromAF(r.rng, af)
		}
	}
	return base, nil
}

func (r *replicateState) drawComparison(idx int, cmp pedigree.Comparison, chr coord.ChrIdx, site Site, cfg *Config, backend genotype.Backend) error {
	gt1, ok1 := r.genotype(cmp.Ind1, chr)
	gt2, ok2 := r.genotype(cmp.Ind2, chr)
	if !ok1 || !ok2 {
		return nil
	}
	a, err := r.drawRead(cmp.Ind1, gt1, site, cfg, backend)
	if err != nil {
		return err
	}
	b, err := r.drawRead(cmp.Ind2, gt2, site, cfg, backend)
	if err != nil {
		return err
	}
	r.results[idx].Overlap++
	if a != b {
		r.results[idx].Sum++
	}
	return nil
}

// processSite advances one replicate by one observed site: pre-site SNP
// downsampling, founder/meiosis genotype assignment in topological order,
// then a simulated read draw for every tracked comparison. A
// MissingResource failure (absent site, genotype or allele frequency)
// while seeking or assigning genotypes skips this site for this replicate
// only, matching spec §7; one raised while drawing a comparison's reads
// skips only that comparison at this site.
func (e *Engine) processSite(r *replicateState, site Site, backend genotype.Backend) error {
	if r.rng.Float64() < r.params.SNPDownsamplingRate {
		return nil
	}
	if err := backend.Seek(site.Coordinate); err != nil {
		if grupserr.Is(err, grupserr.MissingResource) {
			return nil
		}
		return err
	}

	for _, id := range e.order {
		ind := e.cfg.Template.Individual(id)
		if ind.IsFounder() {
			err := r.drawFounder(ind, site.Coordinate.Chr, backend, e.cfg.Population)
			if err != nil {
				if grupserr.Is(err, grupserr.MissingResource) {
					return nil
				}
				return err
			}
			continue
		}
		if !r.meiosisStep(ind, site.Coordinate, e.cfg.GeneticMap) {
			return nil
		}
	}

	for i, cmp := range e.cfg.Template.Comparisons() {
		if err := r.drawComparison(i, cmp, site.Coordinate.Chr, site, &e.cfg, backend); err != nil {
			if grupserr.Is(err, grupserr.MissingResource) {
				continue
			}
			return err
		}
	}
	return nil
}

// Result is one replicate's final per-comparison simulated Pwd counters,
// indexed the same way as Config.Template.Comparisons().
type Result struct {
	Replicate int
	Pwd       []stats.Pwd
}

// Run executes every replicate over the full, already-buffered site
// sequence using a fixed-size worker pool, one goroutine per supplied
// genotype backend (spec §5): each worker owns one replicate's PRNG,
// pedigree snapshot and genotype-backend handle at a time, with no
// shared mutable state between replicates until the final per-replicate
// result slice is returned. Per-replicate seeds are derived from seed by
// simple offset, which keeps results independent of scheduling order
// without requiring a SplitMix generator the standard library lacks.
func (e *Engine) Run(sites []Site, backends []genotype.Backend, seed int64) ([]Result, error) {
	if len(backends) == 0 {
		return nil, grupserr.New(grupserr.Policy, "simengine: Run requires at least one genotype backend")
	}
	results := make([]Result, e.replicates)
	errs := make([]error, e.replicates)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for _, backend := range backends {
		backend := backend
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rep := range jobs {
				rs, err := newReplicate(&e.cfg, seed+int64(rep))
				if err != nil {
					errs[rep] = err
					continue
				}
				for _, site := range sites {
					if err := e.processSite(rs, site, backend); err != nil {
						errs[rep] = err
						break
					}
				}
				results[rep] = Result{Replicate: rep, Pwd: rs.results}
			}
		}()
	}
	for rep := 0; rep < e.replicates; rep++ {
		jobs <- rep
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
