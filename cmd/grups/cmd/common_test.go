package cmd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaelLefeuvre/grups-rs/panel"
	"github.com/MaelLefeuvre/grups-rs/pedigree"
)

func TestParseSampleColumnsRangeAndList(t *testing.T) {
	cols, err := parseSampleColumns("0-2")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cols)

	cols, err = parseSampleColumns("0,3,5")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 5}, cols)
}

func TestParseSampleColumnsEmpty(t *testing.T) {
	_, err := parseSampleColumns("")
	assert.Error(t, err)
}

func TestSplitKV(t *testing.T) {
	label, rest, err := splitKV("child=0.01")
	require.NoError(t, err)
	assert.Equal(t, "child", label)
	assert.Equal(t, "0.01", rest)

	_, _, err = splitKV("no-equals-sign")
	assert.Error(t, err)
}

func testPedigree(t *testing.T) *pedigree.Pedigree {
	t.Helper()
	ped := pedigree.New()
	_, err := ped.AddIndividual("child")
	require.NoError(t, err)
	_, err = ped.AddIndividual("parent")
	require.NoError(t, err)
	return ped
}

func TestParsePedParamMapConstAndRange(t *testing.T) {
	ped := testPedigree(t)
	rates, err := parsePedParamMap([]string{"child=0.02", "parent=0.01-0.05"}, ped, "seq-error-rate")
	require.NoError(t, err)
	child, err := ped.ByLabel("child")
	require.NoError(t, err)
	parent, err := ped.ByLabel("parent")
	require.NoError(t, err)
	assert.Equal(t, 0.02, rates[child.ID].Sample(rand.New(rand.NewSource(1))))
	v := rates[parent.ID].Sample(rand.New(rand.NewSource(1)))
	assert.GreaterOrEqual(t, v, 0.01)
	assert.LessOrEqual(t, v, 0.05)
}

func TestParsePedParamMapUnknownLabel(t *testing.T) {
	ped := testPedigree(t)
	_, err := parsePedParamMap([]string{"stranger=0.1"}, ped, "seq-error-rate")
	assert.Error(t, err)
}

func TestParseProfileIndexMap(t *testing.T) {
	ped := testPedigree(t)
	idx, err := parseProfileIndexMap([]string{"child=2"}, ped)
	require.NoError(t, err)
	child, err := ped.ByLabel("child")
	require.NoError(t, err)
	assert.Equal(t, 2, idx[child.ID])
}

func TestParseContaminantMap(t *testing.T) {
	ped := testPedigree(t)
	pnl := panel.NewReferencePanel()
	for i := 0; i < 5; i++ {
		pnl.Add(panel.NewSampleTag("eur"+string(rune('A'+i)), panel.SexUnknown), "EUR", "EUR")
	}
	rng := rand.New(rand.NewSource(1))
	contaminants, err := parseContaminantMap([]string{"child=EUR:3"}, ped, pnl, rng)
	require.NoError(t, err)
	child, err := ped.ByLabel("child")
	require.NoError(t, err)
	assert.Len(t, contaminants[child.ID].Tags, 3)
}

func TestParseContaminantMapInsufficientPool(t *testing.T) {
	ped := testPedigree(t)
	pnl := panel.NewReferencePanel()
	pnl.Add(panel.NewSampleTag("eurA", panel.SexUnknown), "EUR", "EUR")
	rng := rand.New(rand.NewSource(1))
	_, err := parseContaminantMap([]string{"child=EUR:3"}, ped, pnl, rng)
	assert.Error(t, err)
}
