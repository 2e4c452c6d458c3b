package ingest

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DecodeText converts a datagram to text, replacing every byte that is not
// part of a valid UTF-8 sequence with U+FFFD instead of rejecting the datagram.
func DecodeText(p []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(p)
	if err != nil {
		// not reached: the UTF-8 decoder substitutes instead of failing
		return strings.ToValidUTF8(string(p), "�")
	}
	return string(out)
}
