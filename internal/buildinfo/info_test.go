package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = old[0], old[1], old[2] })

	Version, Commit, Date = "v1.2.3", "abc1234", "2025-02-01"
	assert.Equal(t, "v1.2.3 (commit: abc1234, built: 2025-02-01)", String())

	Version = "dev"
	assert.Contains(t, String(), "(commit: abc1234, built: 2025-02-01)")
}
