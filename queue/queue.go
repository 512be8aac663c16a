// ABOUTME: Durable retry buffer for failed calendar operations
// ABOUTME: Badger-backed queue keyed by (contact, slot) so newer ops supersede older ones
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/dialdeck/models"
)

// MaxAttempts is the retry budget before an operation is marked failed and
// surfaced instead of retried.
const MaxAttempts = 3

var (
	pendingPrefix = []byte("pending/")
	failedPrefix  = []byte("failed/")
)

type Queue struct {
	db *badger.DB
}

// DefaultPath returns the XDG-compliant queue directory.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "dialdeck", "queue")
}

// Open opens the queue at dir, creating it if needed.
func Open(dir string) (*Queue, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation queue: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue stores op for retry. At most one pending operation exists per
// (contact, slot): a newer operation overwrites any older queued one for the
// same slot.
func (q *Queue) Enqueue(op *models.QueuedOperation) error {
	if op.ContactID == "" || op.Slot == "" {
		return &models.ValidationError{Field: "operation", Reason: "contact id and slot are required"}
	}
	if op.ID == "" {
		op.ID = ulid.Make().String()
	}
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = time.Now()
	}

	value, err := json.Marshal(op)
	if err != nil {
		return err
	}

	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(op.ContactID, op.Slot), value)
	})
}

// Pending returns queued operations in enqueue order.
func (q *Queue) Pending() ([]models.QueuedOperation, error) {
	ops, err := q.list(pendingPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

// Failed returns operations that exhausted their retry budget.
func (q *Queue) Failed() ([]models.QueuedOperation, error) {
	ops, err := q.list(failedPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

// ClearFailed discards all permanently failed operations.
func (q *Queue) ClearFailed() error {
	return q.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: failedPrefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Executor performs one queued operation against the remote collaborator.
type Executor func(ctx context.Context, op *models.QueuedOperation) error

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Succeeded int
	Retained  int
	Failed    []models.QueuedOperation
}

// Drain attempts each pending operation in enqueue order. Successful
// operations are removed; failures stay queued with an incremented attempt
// count until the budget is spent, then move to the failed set. Draining is
// safe to interrupt: every operation is independently idempotent, and a
// re-run collapses duplicates through the supersede rule.
func (q *Queue) Drain(ctx context.Context, exec Executor) (*DrainResult, error) {
	pending, err := q.Pending()
	if err != nil {
		return nil, err
	}

	result := &DrainResult{}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		op := pending[i]
		op.AttemptCount++

		if execErr := exec(ctx, &op); execErr == nil {
			if err := q.remove(op.ContactID, op.Slot, op.ID); err != nil {
				return result, err
			}
			result.Succeeded++
			continue
		}

		if op.AttemptCount >= MaxAttempts {
			op.Failed = true
			if err := q.moveToFailed(&op); err != nil {
				return result, err
			}
			result.Failed = append(result.Failed, op)
			continue
		}

		if err := q.update(&op); err != nil {
			return result, err
		}
		result.Retained++
	}

	return result, nil
}

// remove deletes the pending entry only if it still belongs to the drained
// operation; a newer superseding op for the same slot is left alone.
func (q *Queue) remove(contactID, slot, id string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		key := pendingKey(contactID, slot)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var stored models.QueuedOperation
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &stored) }); err != nil {
			return err
		}
		if stored.ID != id {
			return nil
		}
		return txn.Delete(key)
	})
}

func (q *Queue) update(op *models.QueuedOperation) error {
	value, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(op.ContactID, op.Slot), value)
	})
}

func (q *Queue) moveToFailed(op *models.QueuedOperation) error {
	value, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(pendingKey(op.ContactID, op.Slot)); err != nil {
			return err
		}
		return txn.Set(append(failedPrefix, []byte(op.ID)...), value)
	})
}

func (q *Queue) list(prefix []byte) ([]models.QueuedOperation, error) {
	var ops []models.QueuedOperation
	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var op models.QueuedOperation
			err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &op) })
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}
		return nil
	})
	return ops, err
}

func pendingKey(contactID, slot string) []byte {
	return []byte(fmt.Sprintf("pending/%s/%s", contactID, slot))
}
