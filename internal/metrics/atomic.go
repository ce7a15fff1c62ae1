package metrics

import "sync/atomic"

func addUint64(addr *uint64, delta uint64) {
	atomic.AddUint64(addr, delta)
}

func loadUint64(addr *uint64) uint64 {
	return atomic.LoadUint64(addr)
}
