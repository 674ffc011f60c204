package text

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLines_PositionsAndText(t *testing.T) {
	lines := BuildLines([]string{"int x = 0 ;", "int y = 1 ;", "return x ;"}, DefaultWindow)

	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.Equal(t, i+1, l.Position, "position is 1-indexed")
	}
	assert.Equal(t, "return x ;", lines[2].Text)
}

func TestBuildLines_WindowFingerprints(t *testing.T) {
	texts := []string{"int x = 0 ;", "int y = 1 ;", "return x ;"}

	// Window 0: each line fingerprints only itself.
	zero := BuildLines(texts, 0)
	assert.Equal(t, uint64(0xf5f67ffbf9d467e0), zero[0].Fingerprint)
	assert.Equal(t, uint64(0x6d7c7bb2ea553759), zero[1].Fingerprint)
	assert.Equal(t, uint64(0xd5cc72dd05f4e3e3), zero[2].Fingerprint)

	// Window 1: clipped at both ends.
	one := BuildLines(texts, 1)
	assert.Equal(t, uint64(0x65747ff2e8542741), one[0].Fingerprint)
	assert.Equal(t, uint64(0xf5fc77fbe1d427e1), one[1].Fingerprint)
	assert.Equal(t, uint64(0x454c7292e05427c1), one[2].Fingerprint)

	// A window wider than the file covers everything for every line.
	wide := BuildLines(texts, DefaultWindow)
	for _, l := range wide {
		assert.Equal(t, uint64(0xf5fc77fbe1d427e1), l.Fingerprint)
	}
}

func TestBuildLines_NegativeWindow(t *testing.T) {
	texts := []string{"a", "b"}
	assert.Equal(t, BuildLines(texts, 0), BuildLines(texts, -3))
}

func TestBuildLines_Empty(t *testing.T) {
	assert.Empty(t, BuildLines(nil, DefaultWindow))
}

func TestLine_Tokens(t *testing.T) {
	l := NewLine(1, "foo ( bar ) ;", 0)
	assert.Equal(t, []string{"foo", "(", "bar", ")", ";"}, l.Tokens())
}

func TestTexts(t *testing.T) {
	lines := BuildLines([]string{"a", "b", "c"}, 1)
	assert.Equal(t, []string{"a", "b", "c"}, Texts(lines))
}

func TestBuildLines_HugeWindowIsClamped(t *testing.T) {
	texts := []string{"int x = 0 ;", "int y = 1 ;", "return x ;"}

	huge := BuildLines(texts, math.MaxInt)
	full := BuildLines(texts, len(texts))
	require.Len(t, huge, 3)
	assert.Equal(t, full, huge)
	assert.Equal(t, huge[0].Fingerprint, huge[2].Fingerprint, "every line sees the whole file")
}
