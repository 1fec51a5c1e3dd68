package fstbuild_test

import (
	"bufio"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaelLefeuvre/grups-rs/fstbuild"
	"github.com/MaelLefeuvre/grups-rs/panel"
)

func buildPanel(t *testing.T) *panel.ReferencePanel {
	t.Helper()
	p, err := panel.ParseTSV(bufio.NewScanner(strings.NewReader(
		"HG001\tEUR\tGBR\n" +
			"HG002\tEUR\tGBR\n",
	)))
	require.NoError(t, err)
	return p
}

const vcf = "" +
	"##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tHG001\tHG002\n" +
	"1\t100\t.\tA\tG\t.\t.\tVT=SNP;EUR_AF=0.25;GBR_AF=0.3\tGT\t0|1\t1|1\n" +
	"1\t200\t.\tA\tG,T\t.\t.\tVT=SNP;MULTI_ALLELIC;EUR_AF=0.1\tGT\t0|1\t1|1\n" +
	"1\t300\t.\tA\tAT\t.\t.\tVT=INDEL\tGT\t0|1\t1|1\n" +
	"1\t400\t.\tA\tG\t.\t.\tVT=SNP;EUR_AF=0.5\tGT\t.|.\t0|0\n"

func TestBuildSkipsMultiallelicAndIndels(t *testing.T) {
	sets, err := fstbuild.Build(bufio.NewScanner(strings.NewReader(vcf)), buildPanel(t))
	require.NoError(t, err)

	for _, key := range sets.Genotypes {
		assert.NotContains(t, key, "000000200")
		assert.NotContains(t, key, "000000300")
	}
	assert.Contains(t, sets.Genotypes, "1 000000100 HG001 01")
	assert.Contains(t, sets.Genotypes, "1 000000100 HG002 11")
	assert.Contains(t, sets.Genotypes, "1 000000400 HG002 00")
}

func TestBuildSkipsMissingGenotype(t *testing.T) {
	sets, err := fstbuild.Build(bufio.NewScanner(strings.NewReader(vcf)), buildPanel(t))
	require.NoError(t, err)

	for _, key := range sets.Genotypes {
		assert.NotContains(t, key, "000000400 HG001")
	}
}

func TestBuildFrequencyKeysBothPopulationTags(t *testing.T) {
	sets, err := fstbuild.Build(bufio.NewScanner(strings.NewReader(vcf)), buildPanel(t))
	require.NoError(t, err)

	assert.Contains(t, sets.Freq, "1 000000100 EUR 0.250000")
	assert.Contains(t, sets.Freq, "1 000000100 GBR 0.300000")
}

func TestBuildKeysAreSortedAndDeduplicated(t *testing.T) {
	sets, err := fstbuild.Build(bufio.NewScanner(strings.NewReader(vcf)), buildPanel(t))
	require.NoError(t, err)

	assert.True(t, sort.StringsAreSorted(sets.Genotypes))
	assert.True(t, sort.StringsAreSorted(sets.Freq))
	for i := 1; i < len(sets.Genotypes); i++ {
		assert.NotEqual(t, sets.Genotypes[i-1], sets.Genotypes[i])
	}
	for i := 1; i < len(sets.Freq); i++ {
		assert.NotEqual(t, sets.Freq[i-1], sets.Freq[i])
	}
}
