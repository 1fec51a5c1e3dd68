package fstreader

import (
	"bytes"
	"sort"
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/internal/grupserr"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildReader(t *testing.T) *Reader {
	t.Helper()
	genotypeKeys := []string{
		"1 000001000 HG00096 01",
		"1 000001000 HG00097 11",
		"1 000002000 HG00096 00",
	}
	freqKeys := []string{
		"1 000001000 EUR 0.25",
		"1 000002000 EUR 0.5",
	}
	sort.Strings(genotypeKeys)
	sort.Strings(freqKeys)
	genotypeBytes, err := EncodeSet(genotypeKeys)
	require.NoError(t, err)
	freqBytes, err := EncodeSet(freqKeys)
	require.NoError(t, err)
	r, err := Load(bytes.NewReader(genotypeBytes), bytes.NewReader(freqBytes))
	require.NoError(t, err)
	return r
}

func TestAllelesAndPopAF(t *testing.T) {
	r := buildReader(t)
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 1000}))

	tag := panel.NewSampleTag("HG00096", panel.SexUnknown)
	alleles, err := r.Alleles(tag)
	require.NoError(t, err)
	assert.Equal(t, [2]genome.GenotypeCode{genome.CodeRef, genome.CodeAlt}, alleles)

	af, err := r.PopAF("EUR")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, af, 1e-9)
}

func TestAllelesUnknownSample(t *testing.T) {
	r := buildReader(t)
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 1000}))
	_, err := r.Alleles(panel.NewSampleTag("NOPE", panel.SexUnknown))
	assert.Error(t, err)
}

func TestChecksumMismatchIsCorruption(t *testing.T) {
	keys := []string{"1 000001000 HG00096 AG"}
	data, err := EncodeSet(keys)
	require.NoError(t, err)
	corrupted := append([]byte{}, data...)
	corrupted[len(corrupted)-1] ^= 0xFF
	_, err = loadSet(bytes.NewReader(corrupted))
	assert.Error(t, err)
	assert.True(t, grupserr.Is(err, grupserr.Corruption))
}

func TestSeekAtUnrepresentedCoordinateYieldsMissing(t *testing.T) {
	r := buildReader(t)
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 2, Pos: 1}))
	_, err := r.Alleles(panel.NewSampleTag("HG00096", panel.SexUnknown))
	assert.Error(t, err)
}
