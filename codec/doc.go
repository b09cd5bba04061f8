// Package codec provides the streaming block-compression collaborator: two
// independent stateful objects with a feed-data/flush contract.
//
// A Compressor accepts opaque byte chunks and returns zero or more
// compressed bytes per feed; Flush is terminal and makes the compressor
// unusable. A Decompressor accepts compressed chunks with an optional
// max-output-length, exposes a needs-more-input flag, and fails with
// ErrStreamEnded if fed data after the logical stream end; trailing bytes
// are retained in UnusedData, not consumed.
package codec
