// Package ingest turns newline-separated observations into tdigest states.
//
// Each source is read into its own state, concurrently, and the partial
// states are merged once every source has been consumed - the same way an
// aggregation host fans out over partitions and combines their results.
//
package ingest
