// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package counters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_BasicFlow(t *testing.T) {
	c := New()
	assert.True(t, c.Done())

	c.AddTotal(3)
	assert.False(t, c.Done())

	c.IncPending()
	c.IncPending()
	c.IncPending()
	assert.Equal(t, int64(3), c.Pending())
	assert.False(t, c.Done())

	c.IncCompleted()
	c.IncCompleted()
	assert.False(t, c.Done())

	c.IncCompleted()
	assert.True(t, c.Done())
}

func TestCounters_IndependentInstances(t *testing.T) {
	a := New()
	b := New()

	a.AddTotal(5)
	assert.Equal(t, int64(5), a.Total())
	assert.Equal(t, int64(0), b.Total())
}

func TestCounters_Reset(t *testing.T) {
	c := New()
	c.AddTotal(3)
	c.IncPending()
	c.IncCompleted()

	c.Reset()

	assert.Equal(t, int64(0), c.Total())
	assert.Equal(t, int64(0), c.Pending())
	assert.Equal(t, int64(0), c.Completed())
	assert.True(t, c.Done())
}
