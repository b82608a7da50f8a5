package report

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	previous := color.NoColor
	defer func() { color.NoColor = previous }()

	out := Setup(true)
	assert.NotNil(t, out)
	assert.True(t, color.NoColor)
}
