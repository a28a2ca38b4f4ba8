package cache

import (
	"github.com/ethereum/go-ethereum/common/lru"
)

const defaultBlockCacheSize = 1024

// BlockCache keeps recently resolved block hash <-> level pairs. Both
// directions are filled together and must be purged whenever levels are
// removed from the store.
type BlockCache struct {
	levelByHash *lru.Cache[string, int64]
	hashByLevel *lru.Cache[int64, []byte]
}

// NewBlockCache creates a cache holding up to size pairs.
func NewBlockCache(size int) *BlockCache {
	if size <= 0 {
		size = defaultBlockCacheSize
	}
	return &BlockCache{
		levelByHash: lru.NewCache[string, int64](size),
		hashByLevel: lru.NewCache[int64, []byte](size),
	}
}

func (c *BlockCache) Add(level int64, hash []byte) {
	c.levelByHash.Add(string(hash), level)
	c.hashByLevel.Add(level, hash)
}

func (c *BlockCache) GetLevel(hash []byte) (int64, bool) {
	return c.levelByHash.Get(string(hash))
}

func (c *BlockCache) GetHash(level int64) ([]byte, bool) {
	return c.hashByLevel.Get(level)
}

func (c *BlockCache) Len() int {
	return c.hashByLevel.Len()
}

func (c *BlockCache) Purge() {
	c.levelByHash.Purge()
	c.hashByLevel.Purge()
}
