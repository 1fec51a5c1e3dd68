package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMatchesIntegrationFixture(t *testing.T) {
	// spec S6: avg PWDs [0.18692, 0.18605, 0.29032] -> [First Degree, First Degree, Unrelated].
	assert.Equal(t, FirstDegree, Classify(DefaultThresholds, 107, 0.18692))
	assert.Equal(t, FirstDegree, Classify(DefaultThresholds, 86, 0.18605))
	assert.Equal(t, Unrelated, Classify(DefaultThresholds, 31, 0.29032))
}

func TestClassifyIdentical(t *testing.T) {
	assert.Equal(t, Identical, Classify(DefaultThresholds, 100, 0.0))
}

func TestClassifyBoundariesAreHalfOpen(t *testing.T) {
	assert.Equal(t, FirstDegree, Classify(DefaultThresholds, 100, DefaultThresholds.Identical))
	assert.Equal(t, SecondDegree, Classify(DefaultThresholds, 100, DefaultThresholds.FirstDegree))
	assert.Equal(t, ThirdDegree, Classify(DefaultThresholds, 100, DefaultThresholds.SecondDegree))
	assert.Equal(t, Unrelated, Classify(DefaultThresholds, 100, DefaultThresholds.ThirdDegree))
}
