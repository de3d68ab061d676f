package docstore

import "encoding/binary"

// Key layout:
//
//	<collection>/<8-byte big-endian id>  record
//	!seq/<collection>                    sequence counter
//
// Big-endian ids make the badger key order equal the insertion order,
// which is what gives Get and Update their deterministic first-match
// semantics.

func recordKey(collection string, id uint64) []byte {
	key := make([]byte, 0, len(collection)+9)
	key = append(key, collection...)
	key = append(key, '/')
	key = binary.BigEndian.AppendUint64(key, id)
	return key
}

func recordPrefix(collection string) []byte {
	return append([]byte(collection), '/')
}

func sequenceKey(collection string) []byte {
	return append([]byte("!seq/"), collection...)
}
