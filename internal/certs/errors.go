package certs

import (
	"errors"
	"fmt"

	"github.com/roach88/verilib/internal/model"
)

// ErrExists is returned by Create when the certificate is already present.
var ErrExists = errors.New("certificate already exists")

// CollisionError reports two distinct identifiers that would share one
// certificate file.
type CollisionError struct {
	First    model.Identifier
	Second   model.Identifier
	Filename string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("identifier collision: %q and %q both map to certificate file %s",
		e.First, e.Second, e.Filename)
}

// IsCollision reports whether err is an identifier collision.
func IsCollision(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}

// CorruptError reports a file in the ledger that cannot be interpreted.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt certificate %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is a corrupt ledger file.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}
