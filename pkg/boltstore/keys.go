package boltstore

import (
	"encoding/binary"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta    = []byte("meta")
	bucketObjects = []byte("objects")
)

// Meta key constants.
var (
	keyMaxObj = []byte("maxobj")
)

// idToKey converts an ObjID to an 8-byte big-endian key. Offset by a
// large constant so negative IDs (Nothing, etc.) sort correctly.
func idToKey(id moodb.ObjID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(id)+1<<32))
	return buf
}

// keyToID converts an 8-byte big-endian key back to an ObjID.
func keyToID(b []byte) moodb.ObjID {
	v := binary.BigEndian.Uint64(b)
	return moodb.ObjID(int64(v) - 1<<32)
}

// intToKey converts an int to an 8-byte big-endian value.
func intToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// keyToInt converts an 8-byte big-endian value back to an int.
func keyToInt(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
