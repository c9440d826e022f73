// Package settings holds a small set of runtime-adjustable package-level
// defaults (chunk sizes and a default delimiter), plus a handful of
// well-known control characters. No other package in this module reads
// these defaults: the streamer, adapters and unparser take their values
// from their own Config or Options.
//
// These mirror the teacher's internal/fastparser.defaultChunkSize
// pattern (a single package constant fed into the chunker at
// construction) but are made runtime-adjustable, since this module's
// chunk size legitimately differs by source (local file vs. remote
// download) and a caller embedding this library may want to retune both
// without recompiling.
package settings

import "sync/atomic"

// Control characters some producers use in place of comma/newline.
const (
	RecordSeparator = ''
	UnitSeparator   = ''
	ByteOrderMark   = '\U0000FEFF'
)

// BadDelimiters is the set of runes an unparse/parse delimiter must
// never be: they already have a structural meaning (row terminators,
// the quote character, the UTF-8 BOM).
var BadDelimiters = map[rune]bool{
	'\r':          true,
	'\n':          true,
	'"':           true,
	ByteOrderMark: true,
}

var (
	localChunkSize  atomic.Int64
	remoteChunkSize atomic.Int64
	defaultDelim    atomic.Int32
)

func init() {
	localChunkSize.Store(10 * 1024 * 1024) // 10 MiB
	remoteChunkSize.Store(5 * 1024 * 1024) // 5 MiB
	defaultDelim.Store(int32(','))
}

// LocalChunkSize returns the current default chunk size, in bytes, for a
// local source (string/file/push). The adapters do not consult it: a
// Config with no ChunkSize is read as a single whole-input chunk.
func LocalChunkSize() int { return int(localChunkSize.Load()) }

// SetLocalChunkSize updates the local default. Safe for concurrent use.
func SetLocalChunkSize(n int) { localChunkSize.Store(int64(n)) }

// RemoteChunkSize returns the current default chunk size, in bytes, for a
// network download. Smaller than the local default. The network adapter
// does not consult it: a Config with no ChunkSize fetches the whole body
// in one request.
func RemoteChunkSize() int { return int(remoteChunkSize.Load()) }

// SetRemoteChunkSize updates the remote default. Safe for concurrent
// use.
func SetRemoteChunkSize(n int) { remoteChunkSize.Store(int64(n)) }

// DefaultDelimiter returns the delimiter rune assumed before any
// heuristic guess or explicit Config.Delimiter is applied.
func DefaultDelimiter() rune { return rune(defaultDelim.Load()) }

// SetDefaultDelimiter updates the default delimiter. Safe for
// concurrent use.
func SetDefaultDelimiter(r rune) { defaultDelim.Store(int32(r)) }
