// Package row implements the fixed-width row codec: the single
// schema's (id, username, email) triple packed into a 291-byte payload
// with no error paths — lengths are statically known and enforced by
// callers.
package row

import "encoding/binary"

const (
	IDSize       = 4
	UsernameSize = 33 // 32 printable bytes + terminator
	EmailSize    = 256 // 255 printable bytes + terminator

	IDOffset       = 0
	UsernameOffset = IDOffset + IDSize
	EmailOffset    = UsernameOffset + UsernameSize

	// Size is the total serialized row size in bytes.
	Size = EmailOffset + EmailSize // 291

	MaxUsernameLen = UsernameSize - 1 // 32
	MaxEmailLen    = EmailSize - 1    // 255
)

// Row is the in-memory representation of one table row.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// Encode writes row into dst, a slice of at least Size bytes. Trailing
// bytes within each text field beyond the string's length are zeroed,
// matching the zero-padded on-disk format.
func Encode(r Row, dst []byte) {
	binary.LittleEndian.PutUint32(dst[IDOffset:IDOffset+IDSize], r.ID)

	var ub [UsernameSize]byte
	copy(ub[:], r.Username)
	copy(dst[UsernameOffset:UsernameOffset+UsernameSize], ub[:])

	var eb [EmailSize]byte
	copy(eb[:], r.Email)
	copy(dst[EmailOffset:EmailOffset+EmailSize], eb[:])
}

// Decode reads a Row out of src, a slice of at least Size bytes.
// Strings terminate at the first zero byte.
func Decode(src []byte) Row {
	id := binary.LittleEndian.Uint32(src[IDOffset : IDOffset+IDSize])
	username := cString(src[UsernameOffset : UsernameOffset+UsernameSize])
	email := cString(src[EmailOffset : EmailOffset+EmailSize])
	return Row{ID: id, Username: username, Email: email}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
