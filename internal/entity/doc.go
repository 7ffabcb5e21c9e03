// Package entity resolves which registered entity a scanned document belongs
// to. Extracted document fields are mapped to DocumentSignals, every entity is
// scored against those signals, and the scores are partitioned into
// auto-assign, confirmation and manual-selection bands.
package entity
