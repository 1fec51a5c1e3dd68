package genome

import (
	"math/rand"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/geneticmap"
)

// RecombLatch is the "currently recombining" state of one meiosis sweep
// (spec §4.6): an independent draw beats the cumulative recombination
// probability accrued between two positions, the latch flips. Both
// Chromosome.Meiosis's single-pass batch sweep over a preloaded
// chromosome and the pedigree simulator's streaming, site-by-site
// equivalent share this primitive instead of each re-deriving the flip
// rule.
type RecombLatch struct {
	recombining bool
}

// Flip draws against gmap's recombination probability between from and to
// on chr and flips the latch on success, returning its resulting state.
func (l *RecombLatch) Flip(gmap *geneticmap.GeneticMap, chr coord.ChrIdx, from, to coord.Position, rng *rand.Rand) bool {
	if rng.Float64() < gmap.RecombProb(chr, from, to) {
		l.recombining = !l.recombining
	}
	return l.recombining
}

// Recombining reports the latch's current state without drawing.
func (l *RecombLatch) Recombining() bool { return l.recombining }
