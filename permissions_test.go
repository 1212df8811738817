package disko_test

import (
	"testing"

	"github.com/arourr/diskfat"
	"github.com/stretchr/testify/assert"
)

func TestPermissionsCanonicalValues(t *testing.T) {
	assert.True(t, disko.ReadOnly.CanRead())
	assert.False(t, disko.ReadOnly.CanWrite())

	assert.False(t, disko.WriteOnly.CanRead())
	assert.True(t, disko.WriteOnly.CanWrite())

	assert.True(t, disko.ReadWrite.CanRead())
	assert.True(t, disko.ReadWrite.CanWrite())
}

func TestPermissionsIntersects(t *testing.T) {
	assert.True(t, disko.ReadOnly.Intersects(disko.ReadOnly))
	assert.True(t, disko.ReadOnly.Intersects(disko.ReadWrite))
	assert.False(t, disko.ReadOnly.Intersects(disko.WriteOnly))
	assert.True(t, disko.WriteOnly.Intersects(disko.WriteOnly))
}
