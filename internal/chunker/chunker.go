// Package chunker splits extracted document text into fixed-size chunks
// and derives stable chunk identifiers.
package chunker

import (
	"encoding/base64"
	"fmt"
	"iter"
	"unicode/utf8"
)

const DefaultChunkSize = 4096

// Split yields contiguous non-overlapping substrings of text in order,
// covering the input exactly once; the last chunk may be shorter. Size
// counts runes, not bytes, so a boundary never tears a multibyte
// character. Empty text yields nothing. The sequence is lazy and
// restartable: each range starts over from the beginning.
func Split(text string, size int) iter.Seq2[int, string] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(int, string) bool) {
		index, start, runes := 0, 0, 0
		for offset := range text {
			if runes == size {
				if !yield(index, text[start:offset]) {
					return
				}
				index++
				start = offset
				runes = 0
			}
			runes++
		}
		if start < len(text) {
			yield(index, text[start:])
		}
	}
}

// Count returns the number of chunks Split would yield.
func Count(text string, size int) int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return (utf8.RuneCountInString(text) + size - 1) / size
}

// ID derives the chunk key from (source file, chunk index). The source
// name is base64url-encoded so the id stays within the key-safe alphabet
// and distinct sources can never collide, whatever characters the file
// name carries.
func ID(sourceFile string, index int) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(sourceFile))
	return fmt.Sprintf("%s--%d", encoded, index)
}
