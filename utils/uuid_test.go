package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateHandle(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		h := GenerateHandle()
		require.True(t, strings.HasPrefix(h, HandlePrefix))
		require.Len(t, h, len(HandlePrefix)+12)
		require.Equal(t, strings.ToUpper(h), h)
		_, dup := seen[h]
		require.False(t, dup, "duplicate handle %s", h)
		seen[h] = struct{}{}
	}
}
