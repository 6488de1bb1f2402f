package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"
)

// Hash returns the hex SHA-256 of data. Graphs are keyed by the hash of
// their JSON form.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// keyHash accumulates key fields into a SHA-256. Every field is length
// prefixed, so ("ab", "c") and ("a", "bc") hash differently. Writes to a
// hash.Hash never fail, so building a key cannot fail either.
type keyHash struct {
	h hash.Hash
}

func newKeyHash() *keyHash {
	return &keyHash{h: sha256.New()}
}

func (k *keyHash) str(s string) *keyHash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	k.h.Write(n[:])
	k.h.Write([]byte(s))
	return k
}

func (k *keyHash) num(i int) *keyHash {
	return k.str(strconv.Itoa(i))
}

// list writes the element count before the elements, so a trailing empty
// string is not lost.
func (k *keyHash) list(ss []string) *keyHash {
	k.num(len(ss))
	for _, s := range ss {
		k.str(s)
	}
	return k
}

// key returns "kind:<64 hex chars>".
func (k *keyHash) key(kind string) string {
	return kind + ":" + hex.EncodeToString(k.h.Sum(nil))
}
