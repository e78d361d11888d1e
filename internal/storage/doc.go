// Package storage keeps the small amount of state that must survive restarts:
// the rate-limit window counters shared by every edit dispatch.
package storage
