// Package exporter serves, over HTTP, the prometheus metrics registered by
// `pkg/collector` along with the binary encoding of the digests behind them.
//
package exporter
