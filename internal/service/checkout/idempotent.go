package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// IdempotencyStore remembers checkouts by client-supplied key.
//
// Reserve returns the stored receipt when the key already completed, reserved
// = true when the caller now owns the key, and neither when another request
// holds it. A key held for a different fingerprint fails with
// models.ErrIdempotencyKeyReused.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string) (receipt *models.Receipt, reserved bool, err error)
	Complete(ctx context.Context, key, fingerprint string, receipt models.Receipt) error
	Release(ctx context.Context, key string) error
}

// CheckoutOnce is Checkout guarded by an idempotency key. Replaying a key
// with the same cart returns the original receipt; a failed checkout frees the
// key again.
func (e *Engine) CheckoutOnce(ctx context.Context, key string, req models.CheckoutRequest) (models.Receipt, error) {
	store := e.opts.Idempotency
	if key == "" || store == nil {
		return e.Checkout(ctx, req)
	}

	lines, err := mergeLines(req.Lines)
	if err != nil {
		// invalid carts never claim a key
		return e.Checkout(ctx, req)
	}
	fp := fingerprint(lines, req.CustomerContact)

	prior, reserved, err := store.Reserve(ctx, key, fp)
	if errors.Is(err, models.ErrIdempotencyKeyReused) {
		e.logger.Info("idempotency key reused with a different cart", zap.String("idempotency_key", key))
		return models.Receipt{}, ErrIdempotencyKeyReused
	}
	if err != nil {
		return models.Receipt{}, &PersistenceError{Err: fmt.Errorf("reserve idempotency key: %w", err)}
	}
	if prior != nil {
		e.logger.Info("replaying checkout", zap.String("idempotency_key", key), zap.String("sale_id", prior.SaleID))
		return *prior, nil
	}
	if !reserved {
		return models.Receipt{}, ErrCheckoutInProgress
	}

	receipt, err := e.Checkout(ctx, req)
	if err != nil {
		if relErr := store.Release(context.WithoutCancel(ctx), key); relErr != nil {
			e.logger.Warn("failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(relErr))
		}
		return models.Receipt{}, err
	}

	if err := store.Complete(context.WithoutCancel(ctx), key, fp, receipt); err != nil {
		e.logger.Warn("failed to store checkout result", zap.String("idempotency_key", key), zap.Error(err))
	}
	return receipt, nil
}

// fingerprint hashes the merged cart and contact. Line order does not matter.
func fingerprint(lines []models.CartLine, contact string) string {
	sorted := append([]models.CartLine(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	h := sha256.New()
	for _, line := range sorted {
		h.Write([]byte(line.ProductID))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(line.Quantity)))
		h.Write([]byte{0})
	}
	h.Write([]byte(contact))
	return hex.EncodeToString(h.Sum(nil))
}
