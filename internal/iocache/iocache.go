// Package iocache is for caching tool output and recording evaluation history.
package iocache

import (
	"sync"

	"github.com/huangsam/tqi/internal/contract"
)

// CacheStoreManager manages the tool cache and history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	toolCache    contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetToolCacheStore returns the tool output CacheStore, or nil when caching is off.
func (mgr *CacheStoreManager) GetToolCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	if mgr.toolCache == nil {
		return nil
	}
	return mgr.toolCache
}

// GetHistoryStore returns the HistoryStore, or nil when history is off.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	if mgr.history == nil {
		return nil
	}
	return mgr.history
}
