package signature

import (
	"hash/fnv"
	"sync"
)

// keyLocks shards per-key mutexes across a fixed number of buckets, so
// concurrent substeps touching unrelated targets contend only when their
// keys hash to the same bucket, while
// concurrent substeps racing on the same target key always serialize
// (grounded on the teacher's per-node sync.Mutex-guarded maps in
// engine.dagExecutor, generalized from one global mutex to a shard set).
type keyLocks struct {
	shards [256]sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{}
}

func (k *keyLocks) lock(key string) (unlock func()) {
	h := fnv.New32a()
	h.Write([]byte(key))
	shard := &k.shards[h.Sum32()%uint32(len(k.shards))]
	shard.Lock()
	return shard.Unlock
}
