// Package panel models the reference population panel: a mapping from
// population id to a set of sample tags, plus the sample tag type itself
// (spec §3, §4.7).
package panel

import (
	"bufio"
	"math/rand"
	"sort"
	"strings"

	farm "github.com/dgryski/go-farm"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
)

// Sex is the declared sex of a sample, when known.
type Sex int

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

// SampleTag identifies one reference-panel sample (spec §3). Idx is the
// VCF genotype-column index, resolved lazily against a VCF header (zero
// value means "not yet resolved").
type SampleTag struct {
	ID     string
	Idx    *int
	Sex    Sex
	Hash   uint64
}

// NewSampleTag builds a SampleTag, computing its stable identity hash from
// the sample id via FarmHash (spec §3 "hash128"; a 64-bit FarmHash fingerprint
// serves the same disambiguation purpose Go-side).
func NewSampleTag(id string, sex Sex) SampleTag {
	return SampleTag{ID: id, Sex: sex, Hash: farm.Hash64([]byte(id))}
}

// SetIdx resolves the sample's VCF genotype-column index.
func (t *SampleTag) SetIdx(idx int) { t.Idx = &idx }

// ReferencePanel maps population id to its ordered set of sample tags.
// Every sample is registered under both its super-population and its
// sub-population tag (spec §3: "Populations are tagged twice").
type ReferencePanel struct {
	byPopulation map[string][]SampleTag
}

// NewReferencePanel returns an empty panel.
func NewReferencePanel() *ReferencePanel {
	return &ReferencePanel{byPopulation: make(map[string][]SampleTag)}
}

// Add registers sample under both its super- and sub-population.
func (p *ReferencePanel) Add(sample SampleTag, superPop, subPop string) {
	p.byPopulation[superPop] = append(p.byPopulation[superPop], sample)
	if subPop != "" && subPop != superPop {
		p.byPopulation[subPop] = append(p.byPopulation[subPop], sample)
	}
}

// Population returns the ordered sample set tagged with the given
// population id (super or sub).
func (p *ReferencePanel) Population(id string) []SampleTag {
	return p.byPopulation[id]
}

// Populations returns every population id registered in the panel
// (super- and sub-population alike), sorted for deterministic iteration.
func (p *ReferencePanel) Populations() []string {
	ids := make([]string, 0, len(p.byPopulation))
	for id := range p.byPopulation {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveVCFIndex sets Idx on every registered SampleTag whose ID appears in
// columns (sample id -> VCF genotype-column index, as returned by
// vcfreader.HeaderSamples), resolving the "idx resolved lazily against a VCF
// header" contract (spec §3, §4.8) once the backend's header is known.
// Samples absent from columns are left unresolved.
func (p *ReferencePanel) ResolveVCFIndex(columns map[string]int) {
	for _, tags := range p.byPopulation {
		for i := range tags {
			if idx, ok := columns[tags[i].ID]; ok {
				tags[i].SetIdx(idx)
			}
		}
	}
}

// SampleWithoutReplacement draws n distinct samples from population id
// using rng, failing if the population is too small.
func (p *ReferencePanel) SampleWithoutReplacement(id string, n int, rng *rand.Rand) ([]SampleTag, error) {
	pool := p.byPopulation[id]
	if len(pool) < n {
		return nil, grupserr.Newf(grupserr.MissingResource, "panel: population %q has %d samples, need %d", id, len(pool), n)
	}
	idxs := rng.Perm(len(pool))[:n]
	out := make([]SampleTag, n)
	for i, idx := range idxs {
		out[i] = pool[idx]
	}
	return out, nil
}

// ParseTSV reads a reference panel TSV ("sample\tsuper_pop\tsub_pop[\tsex]",
// spec §6).
func ParseTSV(scanner *bufio.Scanner) (*ReferencePanel, error) {
	panel := NewReferencePanel()
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, grupserr.Newf(grupserr.ParseInput, "panel: line %d: expected at least 3 columns", lineNo)
		}
		sex := SexUnknown
		if len(fields) >= 4 {
			switch strings.ToUpper(fields[3]) {
			case "M", "MALE":
				sex = SexMale
			case "F", "FEMALE":
				sex = SexFemale
			}
		}
		tag := NewSampleTag(fields[0], sex)
		panel.Add(tag, fields[1], fields[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, grupserr.Wrap(err, grupserr.Runtime, "panel: scan")
	}
	return panel, nil
}
