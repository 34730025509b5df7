package chapter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceNamesArePadded(t *testing.T) {
	for _, n := range All() {
		padded := fmt.Sprintf("%03d", int(n))
		assert.Len(t, n.Padded(), 3)
		assert.Equal(t, "Narayaneeyam D"+padded, n.Title())
		assert.Equal(t, "Audio_Sync_S_Verses_Only/Narayaneeyam_D"+padded+".mp3", n.AudioPath())
	}
	assert.Len(t, All(), 100)
}

func TestSpecificNames(t *testing.T) {
	assert.Equal(t, "Narayaneeyam D001", Number(1).Title())
	assert.Equal(t, "Narayaneeyam D042", Number(42).Title())
	assert.Equal(t, "Audio_Sync_S_Verses_Only/Narayaneeyam_D100.mp3", Number(100).AudioPath())
	assert.Equal(t, "Dashakam 7", Number(7).Label())
}

func TestParse(t *testing.T) {
	n, err := Parse("007")
	require.NoError(t, err)
	assert.Equal(t, Number(7), n)

	n, err = Parse(" 100 ")
	require.NoError(t, err)
	assert.Equal(t, Last, n)

	_, err = Parse("0")
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = Parse("101")
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = Parse("seven")
	assert.Error(t, err)
}

func TestStepping(t *testing.T) {
	next, ok := Number(1).Next()
	assert.True(t, ok)
	assert.Equal(t, Number(2), next)

	next, ok = Last.Next()
	assert.False(t, ok)
	assert.Equal(t, Last, next)

	prev, ok := First.Prev()
	assert.False(t, ok)
	assert.Equal(t, First, prev)

	prev, ok = Number(50).Prev()
	assert.True(t, ok)
	assert.Equal(t, Number(49), prev)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, First, Clamp(-4))
	assert.Equal(t, Last, Clamp(250))
	assert.Equal(t, Number(12), Clamp(12))
}
