// Package cache provides a bounded LRU map.
//
// Tables keep recently loaded versions in it. Published versions never
// change, so entries only leave the cache by eviction or when the cleaner
// removes the version file.
package cache
