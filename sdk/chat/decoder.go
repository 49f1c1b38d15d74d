package chat

import "unicode/utf8"

// Decoder converts an incoming byte stream to text incrementally. Chunk
// boundaries may fall in the middle of a multi-byte UTF-8 sequence; the
// trailing partial sequence is carried over and prepended to the next
// chunk, so concatenating the outputs equals decoding the whole stream
// at once.
type Decoder struct {
	carry []byte
}

// Decode consumes the next chunk and returns the decoded text that is
// complete so far. Bytes belonging to an unfinished rune are held back.
func (d *Decoder) Decode(chunk []byte) string {
	var buf []byte
	if len(d.carry) > 0 {
		buf = append(d.carry, chunk...)
		d.carry = nil
	} else {
		buf = chunk
	}

	n := completeUTF8Len(buf)
	if n < len(buf) {
		d.carry = append([]byte(nil), buf[n:]...)
	}
	return string(buf[:n])
}

// Flush returns the decoding of any carried bytes and clears the carry.
// Call it at end of stream; a dangling partial sequence passes through
// as-is, matching what a whole-stream decode would produce.
func (d *Decoder) Flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	s := string(d.carry)
	d.carry = nil
	return s
}

// completeUTF8Len returns the length of the longest prefix of b that does
// not end in a truncated multi-byte sequence.
func completeUTF8Len(b []byte) int {
	end := len(b)
	for i := end - 1; i >= 0 && end-i < utf8.UTFMax; i-- {
		c := b[i]
		if c < utf8.RuneSelf {
			// ASCII is always a complete rune.
			return end
		}
		if c&0xC0 == 0x80 {
			// Continuation byte, keep scanning for the lead.
			continue
		}
		if end-i < leadLen(c) {
			return i
		}
		return end
	}
	return end
}

// leadLen returns the sequence length announced by a UTF-8 lead byte.
// Invalid leads report length 1 so they pass through and decode to a
// replacement rune rather than being held back forever.
func leadLen(c byte) int {
	switch {
	case c&0xE0 == 0xC0:
		return 2
	case c&0xF0 == 0xE0:
		return 3
	case c&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
