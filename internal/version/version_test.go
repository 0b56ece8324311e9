package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "commentnotify 0.0.0 (commit unknown, built unknown)", String())
}
