package retained

import "sync"

// ============================================================================
// Node Slice Pooling
// ============================================================================
//
// Hit testing runs on every pointer move and builds a root-to-target path.
// The path slices are pooled so that moving the cursor does not allocate.
//
// Usage:
//   path := acquireNodeSlice()
//   ... append to path ...
//   releaseNodeSlice(path)

var nodeSlicePool = sync.Pool{
	New: func() any {
		s := make([]NodeID, 0, 32)
		return &s
	},
}

// acquireNodeSlice returns an empty slice from the pool.
func acquireNodeSlice() []NodeID {
	return (*nodeSlicePool.Get().(*[]NodeID))[:0]
}

// releaseNodeSlice returns a slice to the pool. It must not be used afterwards.
func releaseNodeSlice(s []NodeID) {
	// Only pool slices up to a reasonable size to avoid memory bloat
	if cap(s) > 256 {
		return
	}
	s = s[:0]
	nodeSlicePool.Put(&s)
}
