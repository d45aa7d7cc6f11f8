package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashText(t *testing.T) {
	full := HashText("科学技術振興事業", 0)
	assert.Len(t, full, 64)
	assert.Equal(t, full[:16], HashText("科学技術振興事業", 16))
	assert.NotEqual(t, HashText("a", 16), HashText("b", 16))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://www.e-rad.go.jp")
	require.NoError(t, err)

	abs, err := ToAbsoluteURL(base, "/offer/detail/12345")
	require.NoError(t, err)
	assert.Equal(t, "https://www.e-rad.go.jp/offer/detail/12345", abs)

	abs, err = ToAbsoluteURL(base, "https://example.org/x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/x", abs)
}
