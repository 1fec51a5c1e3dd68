// Package simengine is the Monte-Carlo pedigree simulation engine: per
// replicate, it advances a copy of a Pedigree template site by site,
// drawing founder genotypes, performing lazy meiosis for offspring, and
// simulating reads under sequencing-error and contamination models to
// accumulate an expected PWD distribution per tracked comparison (spec
// §4.7, §5).
package simengine

import (
	"math/rand"

	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
)

// PedParam is a pedigree simulation parameter that is either a fixed
// constant or sampled once per replicate from a uniform range — a tagged
// union standing in for the source's boxed `PedParam<T>` trait object
// (spec §9, pedigree_params/pedparam.rs's PedParamConst/PedParamRange).
type PedParam struct {
	lo, hi  float64
	isRange bool
}

// ConstParam returns a PedParam that always samples to v.
func ConstParam(v float64) PedParam { return PedParam{lo: v, hi: v} }

// RangeParam returns a PedParam that samples uniformly from [lo, hi] each
// time Sample is called.
func RangeParam(lo, hi float64) PedParam { return PedParam{lo: lo, hi: hi, isRange: true} }

// ParamFromValues builds a PedParam the way the user declares one: a
// single value for a constant rate, two for a uniform range
// (pedparam.rs's `PedParam::from_vec`: len 1 -> Const, len 2 -> Range).
func ParamFromValues(vals []float64) (PedParam, error) {
	switch len(vals) {
	case 1:
		return ConstParam(vals[0]), nil
	case 2:
		return RangeParam(vals[0], vals[1]), nil
	default:
		return PedParam{}, grupserr.Newf(grupserr.Policy,
			"simengine: pedigree parameter must have 1 or 2 values, got %d", len(vals))
	}
}

// Sample draws this parameter's value for one replicate. A constant
// parameter always returns the same value; a range parameter draws
// uniformly from [lo, hi] (pedparam.rs's PedParamRange.value).
func (p PedParam) Sample(rng *rand.Rand) float64 {
	if !p.isRange {
		return p.lo
	}
	return p.lo + rng.Float64()*(p.hi-p.lo)
}
