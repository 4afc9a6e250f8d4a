// Package stats counts allocation tracker activity.
//
// A Recorder subscribes to a tracker table and keeps running totals of
// allocations and releases by provenance, the current and peak number of live
// heap and stack allocations, and the misuse the runtime absorbed instead of
// failing: null addresses, address reuse, frees of untracked addresses and
// scope entries that were already gone. Per-type totals are kept in the order
// types were first seen.
package stats
