// Package cache holds generated narration references and the audio bytes
// behind them.
//
// Store maps an (article, voice) pair to the audio reference produced for it.
// It is bounded and evicts in insertion order. DiskCache persists fetched
// audio across runs, compressed with zstd.
package cache
