package certs

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/verilib/internal/model"
)

// Extension is appended to every certificate filename.
const Extension = ".json"

const hexDigits = "0123456789ABCDEF"

// Encode escapes id into a filename stem.
func Encode(id model.Identifier) string {
	s := string(id)
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

// Decode reverses Encode.
func Decode(stem string) (model.Identifier, error) {
	out := make([]byte, 0, len(stem))
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		if c != '%' {
			if !isSafe(c) {
				return "", fmt.Errorf("unescaped byte %q at %d in %q", c, i, stem)
			}
			out = append(out, c)
			continue
		}
		if i+2 >= len(stem) {
			return "", fmt.Errorf("truncated escape at %d in %q", i, stem)
		}
		hi, ok1 := unhex(stem[i+1])
		lo, ok2 := unhex(stem[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape %q at %d", stem[i:i+3], i)
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return model.Identifier(out), nil
}

// Filename returns the certificate filename for id.
func Filename(id model.Identifier) string {
	return Encode(id) + Extension
}

// foldKey is the form a case-insensitive filesystem compares names in.
func foldKey(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

func isSafe(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
