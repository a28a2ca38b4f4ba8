package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockCacheLookups(t *testing.T) {
	c := NewBlockCache(4)
	c.Add(100, []byte{0xaa, 0xaa})

	level, ok := c.GetLevel([]byte{0xaa, 0xaa})
	assert.True(t, ok)
	assert.Equal(t, int64(100), level)

	hash, ok := c.GetHash(100)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xaa, 0xaa}, hash)

	_, ok = c.GetLevel([]byte{0xaa})
	assert.False(t, ok, "lookup must match the exact hash bytes")
}

func TestBlockCacheEviction(t *testing.T) {
	c := NewBlockCache(2)
	c.Add(1, []byte{0x01})
	c.Add(2, []byte{0x02})
	c.Add(3, []byte{0x03})

	assert.Equal(t, 2, c.Len())
	_, ok := c.GetHash(1)
	assert.False(t, ok)
	_, ok = c.GetLevel([]byte{0x01})
	assert.False(t, ok)
}

func TestBlockCachePurge(t *testing.T) {
	c := NewBlockCache(0)
	c.Add(1, []byte{0x01})
	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, ok := c.GetLevel([]byte{0x01})
	assert.False(t, ok)
}
