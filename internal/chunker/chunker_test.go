package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want int
	}{
		{name: "empty", text: "", size: 4, want: 0},
		{name: "exact multiple", text: "abcdefgh", size: 4, want: 2},
		{name: "short tail", text: "abcdefghi", size: 4, want: 3},
		{name: "smaller than size", text: "ab", size: 4096, want: 1},
		{name: "size one", text: "abc", size: 1, want: 3},
		{name: "bullets across boundary", text: "ab•cd", size: 3, want: 2},
		{name: "multibyte only", text: "•••••", size: 2, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			count := 0
			prev := -1
			for i, chunk := range Split(tt.text, tt.size) {
				if i != prev+1 {
					t.Fatalf("chunk index %d out of order", i)
				}
				prev = i
				if utf8.RuneCountInString(chunk) > tt.size {
					t.Fatalf("chunk %d longer than size: %d runes", i, utf8.RuneCountInString(chunk))
				}
				if !utf8.ValidString(chunk) {
					t.Fatalf("chunk %d is not valid utf-8: %q", i, chunk)
				}
				sb.WriteString(chunk)
				count++
			}
			if sb.String() != tt.text {
				t.Errorf("concatenated chunks = %q, want %q", sb.String(), tt.text)
			}
			if count != tt.want {
				t.Errorf("chunk count = %d, want %d", count, tt.want)
			}
			if got := Count(tt.text, tt.size); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSplitRestartable(t *testing.T) {
	seq := Split("abcdef", 2)
	for pass := 0; pass < 2; pass++ {
		var got []string
		for _, chunk := range seq {
			got = append(got, chunk)
		}
		if len(got) != 3 || got[0] != "ab" || got[2] != "ef" {
			t.Fatalf("pass %d: got %v", pass, got)
		}
	}
}

func TestIDDeterministicAndCollisionFree(t *testing.T) {
	if ID("SBC_4911.pdf", 0) != ID("SBC_4911.pdf", 0) {
		t.Fatal("same (file, index) produced different ids")
	}
	seen := make(map[string]string)
	files := []string{
		"SBC_4911.pdf", "SBC_4912.pdf", "SOB_4911.pdf",
		"plan with spaces.pdf", "plan--with--dashes.pdf",
		"a", "a-", "a--1", // prefixes that would collide under naive joins
	}
	for _, f := range files {
		for i := 0; i < 50; i++ {
			id := ID(f, i)
			key := fmt.Sprintf("%s|%d", f, i)
			if prev, ok := seen[id]; ok {
				t.Fatalf("id %q collides: %s vs %s", id, prev, key)
			}
			seen[id] = key
		}
	}
}
