// Package classifier is the thin collaborator sitting between the
// simulation engine's output shape and the real relatedness classifier
// (spec §1, §6). A trained SVM over simulated (overlap, avg PWD) feature
// vectors is explicitly out of scope; this package exposes the same
// input shape through a pluggable Classify function and a fixed-threshold
// default implementation, grounded on the feature vector the source
// itself builds before handing it to smartcore/linfa
// (svm/{smartcore_svm.rs,linfa_svm.rs}: one feature per comparison, the
// average PWD).
package classifier

// Relationship is a predicted pedigree degree, reported in the .result
// output (spec §4.9).
type Relationship string

const (
	Identical    Relationship = "Identical"
	FirstDegree  Relationship = "First Degree"
	SecondDegree Relationship = "Second Degree"
	ThirdDegree  Relationship = "Third Degree"
	Unrelated    Relationship = "Unrelated"
)

// Func classifies one comparison's observed overlap and average PWD into
// a predicted Relationship.
type Func func(overlap uint64, avgPWD float64) Relationship

// Thresholds are the upper avgPWD bounds (exclusive) of each degree below
// Unrelated, in increasing order. DefaultThresholds is a fixed stand-in
// for the trained classifier the source builds from simulated replicate
// distributions: it has no notion of the candidate pedigrees actually
// simulated for this run, just a flat midpoint table, so its predictions
// should not be trusted the way the real SVM's are.
type Thresholds struct {
	Identical, FirstDegree, SecondDegree, ThirdDegree float64
}

// DefaultThresholds approximates the expected-PWD midpoints between
// successive degrees of relatedness for a biallelic-site random-draw PWD
// statistic (spec GLOSSARY "PWD"): the gap between a degree's expected
// mismatch rate and the unrelated baseline roughly halves with each
// further degree of relatedness.
var DefaultThresholds = Thresholds{
	Identical:    0.05,
	FirstDegree:  0.22,
	SecondDegree: 0.25,
	ThirdDegree:  0.27,
}

// Classify is the default fixed-threshold implementation: overlap is
// accepted as-is (a real classifier would fold it into a confidence
// measure, but this stand-in does not gate on it).
func Classify(thresholds Thresholds, overlap uint64, avgPWD float64) Relationship {
	switch {
	case avgPWD < thresholds.Identical:
		return Identical
	case avgPWD < thresholds.FirstDegree:
		return FirstDegree
	case avgPWD < thresholds.SecondDegree:
		return SecondDegree
	case avgPWD < thresholds.ThirdDegree:
		return ThirdDegree
	default:
		return Unrelated
	}
}
