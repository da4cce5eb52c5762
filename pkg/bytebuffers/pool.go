package bytebuffers

import (
	"sync"
)

var defaultPool = sync.Pool{
	New: func() interface{} {
		return NewBuffer()
	},
}

func Get() Buffer {
	return defaultPool.Get().(Buffer)
}

// Put
// 归还缓存。超过一页的缓存不回收，避免池内持有大块内存。
func Put(b Buffer) {
	if b == nil || b.Cap() > pagesize {
		return
	}
	b.Reset()
	defaultPool.Put(b)
}
