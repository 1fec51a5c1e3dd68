package pileupfmt

import (
	"bufio"
	"strings"
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineBasic(t *testing.T) {
	// spec S1: single heterozygous site, two samples.
	line, err := ParseLine("1\t100\tA\t2\tAC\tJJ\t2\tAG\tJJ", Options{})
	require.NoError(t, err)
	assert.Equal(t, coord.ChrIdx(1), line.Coordinate.Chr)
	assert.Equal(t, coord.Position(100), line.Coordinate.Pos)
	assert.Equal(t, coord.AlleleA, line.Ref)
	require.Len(t, line.Samples, 2)
	assert.Equal(t, 2, line.Samples[0].Depth)
	assert.Equal(t, 2, line.Samples[1].Depth)
}

func TestParseLineRefSubstitution(t *testing.T) {
	line, err := ParseLine("1\t101\tC\t3\t.,C\tJJJ", Options{})
	require.NoError(t, err)
	require.Len(t, line.Samples, 1)
	bases := []coord.Allele{line.Samples[0].Nucleotides[0].Base, line.Samples[0].Nucleotides[1].Base, line.Samples[0].Nucleotides[2].Base}
	assert.Equal(t, []coord.Allele{coord.AlleleC, coord.AlleleC, coord.AlleleC}, bases)
}

func TestParseLineDeletion(t *testing.T) {
	// spec S2: deletion handling.
	line, err := ParseLine("1\t200\tC\t3\tCC*\tJJJ\t1\tC\tJ", Options{IgnoreDels: true})
	require.NoError(t, err)
	require.Len(t, line.Samples, 2)
	assert.Equal(t, 2, line.Samples[0].Depth)
	assert.Equal(t, 1, line.Samples[1].Depth)
}

func TestParseLineDeletionKept(t *testing.T) {
	line, err := ParseLine("1\t200\tC\t3\tCC*\tJJJ\t1\tC\tJ", Options{IgnoreDels: false})
	require.NoError(t, err)
	assert.Equal(t, 3, line.Samples[0].Depth)
}

func TestParseLineRefSkipFails(t *testing.T) {
	// spec S3: reference skip always fails.
	_, err := ParseLine("1\t300\tA\t2\tA>\tJJ", Options{})
	assert.Error(t, err)

	_, err = ParseLine("1\t300\tA\t2\tA<\tJJ", Options{})
	assert.Error(t, err)
}

func TestParseLineUnequalLength(t *testing.T) {
	_, err := ParseLine("1\t300\tA\t2\tAC\tJ", Options{})
	assert.Error(t, err)
}

func TestParseLineIndelSkipped(t *testing.T) {
	// a 2-base insertion after the first read is skipped entirely, not
	// counted against depth or quals.
	line, err := ParseLine("1\t400\tA\t1\tA+2TT\tJ", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Samples[0].Depth)
}

func TestParseLineEndOfReadMarker(t *testing.T) {
	line, err := ParseLine("1\t401\tA\t1\tA$\tJ", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Samples[0].Depth)
}

func TestParseLineStartAnchorSkipsMapq(t *testing.T) {
	line, err := ParseLine("1\t402\tA\t1\t^!A\tJ", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Samples[0].Depth)
	assert.Equal(t, coord.AlleleA, line.Samples[0].Nucleotides[0].Base)
}

func TestScanLinesSkipsBadLines(t *testing.T) {
	input := "1\t100\tA\t2\tAC\tJJ\n" +
		"garbage\n" +
		"1\t101\tA\t2\tAC\tJJ\n"
	scanner := bufio.NewScanner(strings.NewReader(input))
	count := 0
	skipped, err := ScanLines(scanner, Options{}, func(l Line) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, count)
}

func TestFilterPolicyKnownVariants(t *testing.T) {
	targets := NewTargets([]Target{
		{Coordinate: coord.Coordinate{Chr: 1, Pos: 100}, Ref: coord.AlleleA, Alt: coord.AlleleG},
	})
	policy := FilterPolicy{KnownVariants: true}
	keep, err := policy.Keep(targets, coord.Coordinate{Chr: 1, Pos: 100}, coord.AlleleA)
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = policy.Keep(targets, coord.Coordinate{Chr: 1, Pos: 999}, coord.AlleleA)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestFilterPolicyExcludeTransitions(t *testing.T) {
	targets := NewTargets([]Target{
		{Coordinate: coord.Coordinate{Chr: 1, Pos: 100}, Ref: coord.AlleleA, Alt: coord.AlleleG},
		{Coordinate: coord.Coordinate{Chr: 1, Pos: 200}, Ref: coord.AlleleA, Alt: coord.AlleleC},
	})
	policy := FilterPolicy{ExcludeTransitions: true}

	keep, err := policy.Keep(targets, coord.Coordinate{Chr: 1, Pos: 100}, coord.AlleleA)
	require.NoError(t, err)
	assert.False(t, keep, "A/G transition must be excluded")

	keep, err = policy.Keep(targets, coord.Coordinate{Chr: 1, Pos: 200}, coord.AlleleA)
	require.NoError(t, err)
	assert.True(t, keep, "A/C transversion is kept")

	_, err = policy.Keep(targets, coord.Coordinate{Chr: 1, Pos: 999}, coord.AlleleA)
	assert.Error(t, err, "missing target alleles under exclude_transitions must fail")
}
