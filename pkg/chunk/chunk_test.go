// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split(""))
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	got := Split("hello world")
	require.Len(t, got, 1)
	assert.Equal(t, "hello world", got[0])
}

func TestSplit_RespectsTarget(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	got := Split(text)
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.LessOrEqual(t, len([]rune(c)), Target)
		assert.NotEmpty(t, c)
	}
}

func TestSplit_ConcatenationRoundTrips(t *testing.T) {
	text := strings.Repeat("paragraph one.\n\nparagraph two has more words in it. ", 200)
	got := Split(text)
	assert.Equal(t, text, strings.Join(got, ""))
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 500)
	a := Split(text)
	b := Split(text)
	assert.Equal(t, a, b)
}

func TestSplit_NoEmptyChunks(t *testing.T) {
	text := "a\n\n\n\nb" + strings.Repeat("x", Target*2)
	got := Split(text)
	for _, c := range got {
		assert.NotEmpty(t, c)
	}
}

func TestSplit_UnsplittableRunOfCharactersFallsBackToRuneCuts(t *testing.T) {
	text := strings.Repeat("x", Target*3+7)
	got := Split(text)
	require.Len(t, got, 4)
	for _, c := range got[:3] {
		assert.Equal(t, Target, len([]rune(c)))
	}
	assert.Equal(t, 7, len([]rune(got[3])))
	assert.Equal(t, text, strings.Join(got, ""))
}
