package certs

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/roach88/verilib/internal/model"
)

// Names is the rule a filesystem uses to decide that two certificate
// filenames address the same file.
type Names int

const (
	// ExactNames compares filenames byte for byte.
	ExactNames Names = iota
	// FoldedNames compares filenames under Unicode case folding.
	FoldedNames
)

func (n Names) String() string {
	if n == FoldedNames {
		return "folded"
	}
	return "exact"
}

// key returns the form under which name is compared.
func (n Names) key(name string) string {
	if n == FoldedNames {
		return foldKey(name)
	}
	return name
}

// DetectNames reports how the filesystem holding path compares names. The
// nearest existing ancestor whose name has cased letters is looked up again
// with its case swapped; finding the same file means the filesystem folds
// case. Nothing is written.
func DetectNames(path string) Names {
	p := filepath.Clean(path)
	for {
		base := filepath.Base(p)
		swapped := swapCase(base)
		if swapped != base {
			if fi, err := os.Stat(p); err == nil {
				alt, err := os.Stat(filepath.Join(filepath.Dir(p), swapped))
				if err == nil && os.SameFile(fi, alt) {
					return FoldedNames
				}
				return ExactNames
			}
		}
		parent := filepath.Dir(p)
		if parent == p {
			return ExactNames
		}
		p = parent
	}
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}

// CheckCollisions returns a CollisionError when two distinct identifiers in
// ids would share a certificate file under names. Duplicates of the same
// identifier are not collisions.
func CheckCollisions(ids []model.Identifier, names Names) error {
	seen := make(map[string]model.Identifier, len(ids))
	for _, id := range ids {
		name := Filename(id)
		key := names.key(name)
		if prev, ok := seen[key]; ok && prev != id {
			first, second := prev, id
			if second < first {
				first, second = second, first
			}
			return &CollisionError{First: first, Second: second, Filename: name}
		}
		seen[key] = id
	}
	return nil
}
