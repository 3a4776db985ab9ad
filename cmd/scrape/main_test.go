package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPlayTypes(t *testing.T) {
	offensive, defensive, err := selectPlayTypes(" isolation, Cut ")
	require.NoError(t, err)

	require.Len(t, offensive, 2)
	assert.Equal(t, "Isolation", offensive[0].Name)
	assert.Equal(t, "Cut", offensive[1].Name)

	// no defensive Cut page
	require.Len(t, defensive, 1)
	assert.Equal(t, "Isolation", defensive[0].Name)

	_, _, err = selectPlayTypes("isolation,alley-oop")
	assert.ErrorContains(t, err, "alley-oop")
}
