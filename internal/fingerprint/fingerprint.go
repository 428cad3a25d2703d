// Package fingerprint derives the stable file-id used throughout the engine
// to key the catalog, the position table, and the secondary index.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"strconv"
)

// Of returns the 16-hex-character identifier for a file at the given path,
// size, and modification time (milliseconds since epoch).
//
// id = hex16( md5( path + ":" + size + ":" + mtime_ms ) )
//
// Identity is intentionally tied to path+size+mtime: moving or truncating a
// file produces a new id, and two distinct paths never collide unless both
// size and mtime also match.
func Of(path string, size int64, mtimeMs int64) string {
	h := md5.New()
	h.Write([]byte(path))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.FormatInt(mtimeMs, 10)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:16]
}

// OfFile stats the file at path and computes its fingerprint.
func OfFile(path string) (id string, size int64, mtimeMs int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, 0, err
	}
	size = info.Size()
	mtimeMs = info.ModTime().UnixMilli()
	id = Of(path, size, mtimeMs)
	return id, size, mtimeMs, nil
}
