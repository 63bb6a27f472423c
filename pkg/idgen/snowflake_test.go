package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDUniqueAndIncreasing(t *testing.T) {
	seen := make(map[int64]struct{}, 2000)
	var prev int64
	for i := 0; i < 2000; i++ {
		id := NextID()
		_, dup := seen[id]
		require.False(t, dup, "ID 不能重复: %d", id)
		seen[id] = struct{}{}
		assert.GreaterOrEqual(t, id, prev, "ID 必须趋势递增")
		prev = id
	}
}

func TestBusinessNoPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateUnlockNo(), "ULK"))
	assert.True(t, strings.HasPrefix(GenerateTransactionNo(), "TXN"))
	assert.True(t, strings.HasPrefix(GenerateGrantNo(), "GRT"))

	// 同一毫秒内连续生成也不能撞号
	a := GenerateUnlockNo()
	b := GenerateUnlockNo()
	assert.NotEqual(t, a, b)
}
