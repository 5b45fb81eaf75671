package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
)

// Ledger is the part of the certificate ledger Apply mutates.
type Ledger interface {
	Create(cat certs.Category, id model.Identifier, ts time.Time) error
	Delete(cat certs.Category, id model.Identifier) error
	CheckCollisions(ids []model.Identifier) error
}

// Clock returns the timestamp stamped on new certificates.
type Clock func() time.Time

// Changes is a batch of ledger mutations within one category.
type Changes struct {
	Category certs.Category
	Existing model.Set
	ToCreate []model.Identifier
	ToDelete []model.Identifier
}

// Result reports what Apply did.
type Result struct {
	Category certs.Category    `json:"category"`
	Created  []model.Identifier `json:"created"`
	Deleted  []model.Identifier `json:"deleted"`
	Before   int                `json:"before"`
	After    int                `json:"after"`
}

// Apply creates then deletes certificates one at a time. Filename collisions
// are checked before the first mutation. On error the returned Result covers
// the changes already committed. After counts certificates present once Apply
// returns, including ones another process created while it ran.
func Apply(ctx context.Context, ledger Ledger, ch Changes, now Clock, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	existing := orEmpty(ch.Existing)
	res := Result{
		Category: ch.Category,
		Created:  []model.Identifier{},
		Deleted:  []model.Identifier{},
		Before:   len(existing),
		After:    len(existing),
	}

	if err := ledger.CheckCollisions(existing.Union(model.NewSet(ch.ToCreate...)).Sorted()); err != nil {
		return res, err
	}

	for _, id := range ch.ToCreate {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := ledger.Create(ch.Category, id, now())
		if errors.Is(err, certs.ErrExists) {
			// Not ours, but it is in the ledger now.
			logger.Warn("certificate appeared during run", "category", ch.Category, "identifier", id)
			res.After++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("creating %s certificate for %s: %w", ch.Category, id, err)
		}
		res.Created = append(res.Created, id)
		res.After++
		logger.Debug("created certificate", "category", ch.Category, "identifier", id)
	}

	for _, id := range ch.ToDelete {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := ledger.Delete(ch.Category, id); err != nil {
			return res, fmt.Errorf("deleting %s certificate for %s: %w", ch.Category, id, err)
		}
		res.Deleted = append(res.Deleted, id)
		res.After--
		logger.Debug("deleted certificate", "category", ch.Category, "identifier", id)
	}

	return res, nil
}
