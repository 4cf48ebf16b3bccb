package demis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	// "u" + combining diaeresis folds to the precomposed code point.
	decomposed := "probe_u\u0308.fastq"
	composed := "probe_\u00fc.fastq"

	assert.Equal(t, composed, NormalizeName(decomposed))
	assert.Equal(t, composed, NormalizeName(composed))
	assert.Equal(t, "plain.fastq", NormalizeName("plain.fastq"))
}
