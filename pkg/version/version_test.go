package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndUserAgent(t *testing.T) {
	prev := version
	t.Cleanup(func() { version = prev })

	Set("")
	require.Equal(t, prev, version)

	Set("v1.2.3")
	require.Equal(t, "v1.2.3", Version())
	require.Equal(t, "salesdash/v1.2.3", UserAgent())
}
