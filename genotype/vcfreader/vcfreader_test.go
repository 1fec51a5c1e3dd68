package vcfreader

import (
	"bufio"
	"strings"
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/MaelLefeuvre/grups-rs/genome"
	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVCF() string {
	lines := []string{
		"##fileformat=VCFv4.2",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tHG00096\tHG00097",
		"1\t1000\t.\tA\tG\t.\t.\tVT=SNP;EUR_AF=0.25\tGT\t0|1\t1|1",
		"1\t1500\t.\tAT\tA\t.\t.\tVT=INDEL\tGT\t0|0\t0|0",
		"1\t2000\t.\tC\tT,G\t.\t.\tVT=SNP;MULTI_ALLELIC;EUR_AF=0.1\tGT\t0|1\t1|2",
		"1\t3000\t.\tG\tA\t.\t.\tVT=SNP;EUR_AF=0.5\tGT\t.|.\t0|0",
	}
	return strings.Join(lines, "\n") + "\n"
}

func idx(i int) panel.SampleTag {
	tag := panel.NewSampleTag("x", panel.SexUnknown)
	tag.SetIdx(i)
	return tag
}

func TestSeekSkipsHeaderAndIndels(t *testing.T) {
	r := New(bufio.NewScanner(strings.NewReader(sampleVCF())))
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 1000}))
	alleles, err := r.Alleles(idx(0))
	require.NoError(t, err)
	assert.Equal(t, [2]genome.GenotypeCode{genome.CodeRef, genome.CodeAlt}, alleles)
}

func TestSeekSkipsMultiallelic(t *testing.T) {
	r := New(bufio.NewScanner(strings.NewReader(sampleVCF())))
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 1000}))
	err := r.Seek(coord.Coordinate{Chr: 1, Pos: 2000})
	assert.Error(t, err) // 2000 is multiallelic and gets skipped, then 3000 is seen and overshoots
}

func TestAllelesMissingGenotype(t *testing.T) {
	r := New(bufio.NewScanner(strings.NewReader(sampleVCF())))
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 3000}))
	_, err := r.Alleles(idx(0))
	assert.Error(t, err)
	alleles, err := r.Alleles(idx(1))
	require.NoError(t, err)
	assert.Equal(t, [2]genome.GenotypeCode{genome.CodeRef, genome.CodeRef}, alleles)
}

func TestPopAF(t *testing.T) {
	r := New(bufio.NewScanner(strings.NewReader(sampleVCF())))
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 1000}))
	af, err := r.PopAF("EUR")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, af, 1e-9)

	_, err = r.PopAF("AFR")
	assert.Error(t, err)
}

func TestSeekPastTargetFails(t *testing.T) {
	r := New(bufio.NewScanner(strings.NewReader(sampleVCF())))
	err := r.Seek(coord.Coordinate{Chr: 1, Pos: 999})
	assert.Error(t, err)
}

func TestHeaderSamples(t *testing.T) {
	columns, err := HeaderSamples(bufio.NewScanner(strings.NewReader(sampleVCF())))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"HG00096": 0, "HG00097": 1}, columns)
}

func TestHeaderSamplesMissingHeader(t *testing.T) {
	_, err := HeaderSamples(bufio.NewScanner(strings.NewReader("1\t1000\t.\tA\tG\t.\t.\tVT=SNP\tGT\t0|1\n")))
	assert.Error(t, err)
}

func TestPopAFDoesNotMatchLongerPrefix(t *testing.T) {
	line := "1\t1000\t.\tA\tG\t.\t.\tVT=SNP;EAS_AFR_AF=0.9\tGT\t0|1\n"
	r := New(bufio.NewScanner(strings.NewReader("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS\n" + line)))
	require.NoError(t, r.Seek(coord.Coordinate{Chr: 1, Pos: 1000}))
	_, err := r.PopAF("EAS")
	assert.Error(t, err)
}
