package jackknife

import (
	"testing"

	"github.com/MaelLefeuvre/grups-rs/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnequalRemainder(t *testing.T) {
	blocks := New([]ChromosomeLength{{Chr: 1, Length: 249250621}}, 1000)
	assert.Len(t, blocks.ForChr(1), 249251)
}

func TestNewEqualRemainderExcluded(t *testing.T) {
	// spec §9(b): length mod blocksize == 1 excludes the trailing block.
	blocks := New([]ChromosomeLength{{Chr: 1, Length: 2000001}}, 1000)
	chrBlocks := blocks.ForChr(1)
	assert.Len(t, chrBlocks, 2000)
	assert.Equal(t, coord.Position(1), chrBlocks[0].Start)
	assert.Equal(t, coord.Position(1001), chrBlocks[0].End)
	last := chrBlocks[len(chrBlocks)-1]
	assert.Equal(t, coord.Position(1999001), last.Start)
	assert.Equal(t, coord.Position(2000001), last.End)
}

func TestBlockPartition(t *testing.T) {
	// spec §8 property 1: every position in [1, length] is covered by
	// exactly one block (except the documented §9(b) edge case).
	blocks := New([]ChromosomeLength{{Chr: 1, Length: 10000}}, 1000)
	for pos := coord.Position(1); pos <= 10000; pos++ {
		blk, err := blocks.FindBlock(1, pos)
		require.NoError(t, err)
		assert.True(t, blk.Contains(pos))
	}
}

func TestFindBlockCountsMonotone(t *testing.T) {
	blocks := New([]ChromosomeLength{{Chr: 1, Length: 5000}}, 1000)
	for i := 0; i < 3; i++ {
		blk, err := blocks.FindBlock(1, 1500)
		require.NoError(t, err)
		blk.AddCount()
		blk.AddPwd()
	}
	blk, err := blocks.FindBlock(1, 1500)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), blk.SiteCounts)
	assert.Equal(t, uint64(3), blk.PwdCounts)
	assert.LessOrEqual(t, blk.PwdCounts, blk.SiteCounts)
}

func TestFindBlockUnknownChromosome(t *testing.T) {
	blocks := New([]ChromosomeLength{{Chr: 1, Length: 5000}}, 1000)
	_, err := blocks.FindBlock(2, 1)
	assert.Error(t, err)
}
