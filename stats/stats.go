// Package stats computes the per-pair observed averages and block-jackknife
// confidence intervals reported alongside every comparison (spec §4.3,
// §4.9).
package stats

import (
	"math"

	"github.com/MaelLefeuvre/grups-rs/jackknife"
)

// Pwd is the observed-mismatch counter for a single comparison (spec §3).
type Pwd struct {
	Overlap uint64
	Sum     uint64
}

// Avg returns Sum/Overlap, or 0 if there is no overlap.
func (p Pwd) Avg() float64 {
	if p.Overlap == 0 {
		return 0
	}
	return float64(p.Sum) / float64(p.Overlap)
}

// Estimate is the result of a block-jackknife variance estimate: the point
// estimate (the overall average) plus the delete-one-block variance and
// derived 95% CI bounds.
type Estimate struct {
	Avg      float64
	Variance float64
	CILow    float64
	CIHigh   float64
}

// BlockJackknife computes the delete-one-block variance for a comparison's
// Pwd counter, given the per-chromosome blocks that were updated while
// accumulating it (spec §4.3):
//
//	theta_hat_-k = (sum - pwd_k) / (overlap - sites_k)
//	variance     = ((n-1)/n) * sum_k (theta_hat_-k - theta_hat)^2
//
// over blocks with sites_k > 0, where n is that count. The 95% CI uses a
// normal approximation (+/- 1.96 * sqrt(variance)).
func BlockJackknife(overall Pwd, blocks []*jackknife.Block) Estimate {
	thetaHat := overall.Avg()
	est := Estimate{Avg: thetaHat}
	var pseudo []float64
	for _, blk := range blocks {
		if blk.SiteCounts == 0 {
			continue
		}
		denom := float64(overall.Overlap) - float64(blk.SiteCounts)
		if denom <= 0 {
			continue
		}
		thetaMinusK := (float64(overall.Sum) - float64(blk.PwdCounts)) / denom
		pseudo = append(pseudo, thetaMinusK)
	}
	n := len(pseudo)
	if n < 2 {
		return est
	}
	var sumSq float64
	for _, t := range pseudo {
		d := t - thetaHat
		sumSq += d * d
	}
	variance := (float64(n-1) / float64(n)) * sumSq
	est.Variance = variance
	stderr := math.Sqrt(variance)
	est.CILow = thetaHat - 1.96*stderr
	est.CIHigh = thetaHat + 1.96*stderr
	return est
}
