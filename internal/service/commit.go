package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/sif/internal/catalog"
	"github.com/dukerupert/sif/internal/domain"
	"github.com/dukerupert/sif/internal/telemetry"
)

// Inventory adjustments always use the platform's correction reason against
// the "available" quantity state.
const (
	inventoryReason    = "correction"
	inventoryStateName = "available"
)

// Outcome messages.
const (
	msgNoQuantityChange = "No quantity change needed"
	msgStockUpdated     = "Stock updated"
	msgStockFailed      = "Stock update failed"
	msgPricingUpdated   = "Pricing updated"
	msgPricingFailed    = "Pricing update failed"
)

// costErrorTokens flag a combined-write rejection as cost-related. Matched
// case-insensitively against both the error's field path and message text.
var costErrorTokens = []string{"inventoryitem", "unitcost", "cost"}

// CommitService commits a set of included reconciled items as batched remote
// writes, tolerant of partial failure, reporting one UpdateOutcome per item.
//
// All gateway calls are issued sequentially: writes for one progress batch
// fully settle before the next begins, so the aggregated outcome list is
// deterministic in batch order.
type CommitService interface {
	// CommitStock applies quantity deltas only.
	CommitStock(ctx context.Context, items []domain.ReconciledItem, params CommitParams) ([]domain.UpdateOutcome, error)

	// CommitPricing applies price/cost writes, with the secondary inventory
	// pass when params.AlsoUpdateStock is set.
	CommitPricing(ctx context.Context, items []domain.ReconciledItem, params CommitParams) ([]domain.UpdateOutcome, error)
}

// CommitObserver receives progress callbacks during a run. Either callback
// may be nil.
type CommitObserver struct {
	// OnBatchStart fires before a progress batch's writes begin; current is
	// 1-based.
	OnBatchStart func(current, total int)

	// OnBatchDone fires after a progress batch settles with that batch's
	// outcomes.
	OnBatchDone func(outcomes []domain.UpdateOutcome)
}

// CommitParams carries per-run options.
type CommitParams struct {
	LocationID      string
	AlsoUpdateStock bool
	Observer        CommitObserver
}

type commitService struct {
	gateway           catalog.Gateway
	progressBatchSize int
	writeBatchSize    int
	metrics           *telemetry.Metrics
	logger            *slog.Logger
}

// NewCommitService creates the batch commit orchestrator. progressBatchSize
// is the user-visible chunking; writeBatchSize caps variants/changes per
// gateway call. metrics may be nil.
func NewCommitService(gateway catalog.Gateway, progressBatchSize, writeBatchSize int, metrics *telemetry.Metrics, logger *slog.Logger) CommitService {
	if progressBatchSize <= 0 {
		progressBatchSize = 50
	}
	if writeBatchSize <= 0 || writeBatchSize > 100 {
		writeBatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &commitService{
		gateway:           gateway,
		progressBatchSize: progressBatchSize,
		writeBatchSize:    writeBatchSize,
		metrics:           metrics,
		logger:            logger,
	}
}

func (s *commitService) CommitStock(ctx context.Context, items []domain.ReconciledItem, params CommitParams) ([]domain.UpdateOutcome, error) {
	return s.run(ctx, items, params, "stock", func(ctx context.Context, batch []domain.ReconciledItem) []domain.UpdateOutcome {
		return s.commitStockBatch(ctx, batch, params.LocationID)
	})
}

func (s *commitService) CommitPricing(ctx context.Context, items []domain.ReconciledItem, params CommitParams) ([]domain.UpdateOutcome, error) {
	mode := "pricing"
	if params.AlsoUpdateStock {
		mode = "pricing_and_stock"
	}
	return s.run(ctx, items, params, mode, func(ctx context.Context, batch []domain.ReconciledItem) []domain.UpdateOutcome {
		return s.commitPricingBatch(ctx, batch, params)
	})
}

// run drives the top-level progress-batch loop: partition the included set,
// process one progress batch at a time, and concatenate outcomes in
// completion order. Cancellation is checked between progress batches only;
// a batch that has started always settles.
func (s *commitService) run(ctx context.Context, items []domain.ReconciledItem, params CommitParams, mode string, commitBatch func(context.Context, []domain.ReconciledItem) []domain.UpdateOutcome) ([]domain.UpdateOutcome, error) {
	start := time.Now()
	total := (len(items) + s.progressBatchSize - 1) / s.progressBatchSize
	outcomes := make([]domain.UpdateOutcome, 0, len(items))

	if s.metrics != nil {
		s.metrics.CommitRuns.WithLabelValues(mode).Inc()
	}
	s.logger.Info("commit run starting",
		slog.String("mode", mode),
		slog.Int("items", len(items)),
		slog.Int("batches", total))

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return outcomes, domain.WrapError(err, domain.ECONFLICT, "commit.run", "Commit run canceled between batches")
		}

		if params.Observer.OnBatchStart != nil {
			params.Observer.OnBatchStart(i+1, total)
		}

		end := min((i+1)*s.progressBatchSize, len(items))
		batchOutcomes := commitBatch(ctx, items[i*s.progressBatchSize:end])

		s.countOutcomes(batchOutcomes)
		outcomes = append(outcomes, batchOutcomes...)
		if params.Observer.OnBatchDone != nil {
			params.Observer.OnBatchDone(batchOutcomes)
		}
	}

	if s.metrics != nil {
		s.metrics.CommitDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
	s.logger.Info("commit run complete",
		slog.String("mode", mode),
		slog.Int("outcomes", len(outcomes)),
		slog.Duration("elapsed", time.Since(start)))

	return outcomes, nil
}

// =============================================================================
// Stock-only path
// =============================================================================

// commitStockBatch applies inventory deltas for one progress batch.
// Zero-delta items never produce a gateway call. The adjust call is
// all-or-nothing per write batch: a transport error or field error marks
// every item in that write batch failed. The returned slice is aligned one
// to one with items, so callers can pair outcomes positionally.
func (s *commitService) commitStockBatch(ctx context.Context, items []domain.ReconciledItem, locationID string) []domain.UpdateOutcome {
	outcomes := make([]domain.UpdateOutcome, len(items))

	var pending []int
	var changes []catalog.InventoryChange
	for i, item := range items {
		delta := item.NewQuantity - item.CurrentQuantity
		if delta == 0 {
			outcomes[i] = domain.UpdateOutcome{
				SKU:     item.SKU,
				Updated: false,
				Message: msgNoQuantityChange,
			}
			if s.metrics != nil {
				s.metrics.InventorySkipped.Inc()
			}
			continue
		}
		pending = append(pending, i)
		changes = append(changes, catalog.InventoryChange{
			InventoryItemID: item.InventoryItemID,
			LocationID:      locationID,
			Delta:           delta,
		})
	}

	for start := 0; start < len(changes); start += s.writeBatchSize {
		end := min(start+s.writeBatchSize, len(changes))

		result, err := s.gateway.AdjustInventory(ctx, changes[start:end], inventoryReason, inventoryStateName)
		if err != nil {
			s.countWrite("adjust_inventory", "error")
			s.logger.Warn("inventory adjust failed", slog.Any("error", err))
			for _, i := range pending[start:end] {
				outcomes[i] = domain.UpdateOutcome{
					SKU:     items[i].SKU,
					Updated: false,
					Message: msgStockFailed,
					Error:   err.Error(),
				}
			}
			continue
		}
		if len(result.FieldErrors) > 0 {
			s.countWrite("adjust_inventory", "rejected")
			for _, i := range pending[start:end] {
				outcomes[i] = domain.UpdateOutcome{
					SKU:     items[i].SKU,
					Updated: false,
					Message: msgStockFailed,
					Error:   result.FieldErrors[0].Message,
				}
			}
			continue
		}

		s.countWrite("adjust_inventory", "ok")
		for _, i := range pending[start:end] {
			outcomes[i] = domain.UpdateOutcome{
				SKU:     items[i].SKU,
				Updated: true,
				Message: msgStockUpdated,
			}
		}
	}

	return outcomes
}

// =============================================================================
// Pricing path
// =============================================================================

// commitPricingBatch writes price/cost for one progress batch, grouped by
// parent product, then optionally runs the secondary inventory pass and
// merges its result into the same per-SKU outcomes.
func (s *commitService) commitPricingBatch(ctx context.Context, items []domain.ReconciledItem, params CommitParams) []domain.UpdateOutcome {
	outcomes := make([]domain.UpdateOutcome, 0, len(items))

	// Group by parent product, preserving encounter order. The bulk write
	// operates per parent with an array of its variants.
	groupOrder := make([]string, 0, len(items))
	groups := make(map[string][]domain.ReconciledItem)
	for _, item := range items {
		if _, seen := groups[item.ParentID]; !seen {
			groupOrder = append(groupOrder, item.ParentID)
		}
		groups[item.ParentID] = append(groups[item.ParentID], item)
	}

	// Sub-batch outcomes land in parent-group order, not input order; the
	// variant-keyed index lets the stock pass find each item's outcome.
	indexByVariant := make(map[string]int, len(items))
	for _, parentID := range groupOrder {
		group := groups[parentID]
		for start := 0; start < len(group); start += s.writeBatchSize {
			end := min(start+s.writeBatchSize, len(group))
			sub := group[start:end]
			for j, item := range sub {
				indexByVariant[item.VariantID] = len(outcomes) + j
			}
			outcomes = append(outcomes, s.commitPricingSubBatch(ctx, parentID, sub)...)
		}
	}

	if params.AlsoUpdateStock {
		s.mergeStockPass(ctx, items, params.LocationID, outcomes, indexByVariant)
	}

	return outcomes
}

// commitPricingSubBatch attempts the combined price+cost write for one
// sub-batch and applies the two-tier fallback when the combined call is
// rejected for cost-related reasons.
func (s *commitService) commitPricingSubBatch(ctx context.Context, parentID string, items []domain.ReconciledItem) []domain.UpdateOutcome {
	writes := make([]catalog.VariantWrite, 0, len(items))
	for _, item := range items {
		cost := item.NewCost
		writes = append(writes, catalog.VariantWrite{
			VariantID: item.VariantID,
			Price:     item.Price,
			Cost:      &cost,
		})
	}

	result, err := s.gateway.BulkUpdateVariants(ctx, parentID, writes)
	if err != nil {
		// Transport failure is scoped to this sub-batch; remaining parent
		// groups still execute.
		s.countWrite("bulk_update", "error")
		s.logger.Warn("combined variant write failed", slog.String("parent_id", parentID), slog.Any("error", err))
		return failAll(items, msgPricingFailed, err.Error())
	}

	if len(result.FieldErrors) == 0 {
		s.countWrite("bulk_update", "ok")
		return succeedAll(items, msgPricingUpdated)
	}

	if !hasCostError(result.FieldErrors) {
		// Price-related rejection: the fallback cannot fix it.
		s.countWrite("bulk_update", "rejected")
		return failAll(items, msgPricingFailed, result.FieldErrors[0].Message)
	}

	return s.costFallback(ctx, parentID, items)
}

// costFallback retries the sub-batch with price only, then writes each
// variant's cost through the standalone single-item operation.
func (s *commitService) costFallback(ctx context.Context, parentID string, items []domain.ReconciledItem) []domain.UpdateOutcome {
	if s.metrics != nil {
		s.metrics.CostFallbacks.Inc()
	}
	s.logger.Info("combined write rejected cost fields, falling back",
		slog.String("parent_id", parentID),
		slog.Int("variants", len(items)))

	priceOnly := make([]catalog.VariantWrite, 0, len(items))
	for _, item := range items {
		priceOnly = append(priceOnly, catalog.VariantWrite{VariantID: item.VariantID, Price: item.Price})
	}

	var retryErr string
	retryResult, err := s.gateway.BulkUpdateVariants(ctx, parentID, priceOnly)
	switch {
	case err != nil:
		s.countWrite("bulk_update", "error")
		retryErr = err.Error()
	case len(retryResult.FieldErrors) > 0:
		s.countWrite("bulk_update", "rejected")
		retryErr = retryResult.FieldErrors[0].Message
	default:
		s.countWrite("bulk_update", "ok")
	}

	outcomes := make([]domain.UpdateOutcome, 0, len(items))
	for _, item := range items {
		var costErr string
		costResult, err := s.gateway.UpdateInventoryItemCost(ctx, item.InventoryItemID, item.NewCost)
		switch {
		case err != nil:
			s.countWrite("item_cost", "error")
			costErr = err.Error()
		case len(costResult.FieldErrors) > 0:
			s.countWrite("item_cost", "rejected")
			costErr = costResult.FieldErrors[0].Message
		default:
			s.countWrite("item_cost", "ok")
		}

		if retryErr == "" && costErr == "" {
			outcomes = append(outcomes, domain.UpdateOutcome{
				SKU:     item.SKU,
				Updated: true,
				Message: msgPricingUpdated,
			})
			continue
		}

		// The cost-specific error is the more precise diagnosis when both
		// passes failed.
		detail := costErr
		if detail == "" {
			detail = retryErr
		}
		outcomes = append(outcomes, domain.UpdateOutcome{
			SKU:     item.SKU,
			Updated: false,
			Message: msgPricingFailed,
			Error:   detail,
		})
	}

	return outcomes
}

// mergeStockPass runs the inventory delta pass after pricing and merges the
// result into each item's own outcome, located through indexByVariant: a
// stock failure flips that outcome to failed and records the stock error
// alongside any pricing error. Zero-delta items keep their pricing outcome
// untouched. Items can share a SKU, so the merge is keyed by variant, never
// by SKU.
func (s *commitService) mergeStockPass(ctx context.Context, items []domain.ReconciledItem, locationID string, outcomes []domain.UpdateOutcome, indexByVariant map[string]int) {
	stockOutcomes := s.commitStockBatch(ctx, items, locationID)

	for i, stock := range stockOutcomes {
		idx, ok := indexByVariant[items[i].VariantID]
		if !ok {
			continue
		}
		if stock.Message == msgNoQuantityChange {
			continue
		}
		if stock.Updated {
			continue
		}

		outcome := &outcomes[idx]
		outcome.Updated = false
		if outcome.Error != "" {
			outcome.Error = outcome.Error + "; " + stock.Error
		} else {
			outcome.Error = stock.Error
		}
	}
}

// =============================================================================
// Helpers
// =============================================================================

// hasCostError reports whether any field error looks cost-related, matched
// case-insensitively against the field path and message text.
func hasCostError(fieldErrors []catalog.FieldError) bool {
	for _, fe := range fieldErrors {
		haystack := strings.ToLower(strings.Join(fe.Field, ".") + " " + fe.Message)
		for _, token := range costErrorTokens {
			if strings.Contains(haystack, token) {
				return true
			}
		}
	}
	return false
}

func failAll(items []domain.ReconciledItem, message, detail string) []domain.UpdateOutcome {
	outcomes := make([]domain.UpdateOutcome, 0, len(items))
	for _, item := range items {
		outcomes = append(outcomes, domain.UpdateOutcome{
			SKU:     item.SKU,
			Updated: false,
			Message: message,
			Error:   detail,
		})
	}
	return outcomes
}

func succeedAll(items []domain.ReconciledItem, message string) []domain.UpdateOutcome {
	outcomes := make([]domain.UpdateOutcome, 0, len(items))
	for _, item := range items {
		outcomes = append(outcomes, domain.UpdateOutcome{
			SKU:     item.SKU,
			Updated: true,
			Message: message,
		})
	}
	return outcomes
}

func (s *commitService) countWrite(operation, result string) {
	if s.metrics != nil {
		s.metrics.GatewayWrites.WithLabelValues(operation, result).Inc()
	}
}

func (s *commitService) countOutcomes(outcomes []domain.UpdateOutcome) {
	if s.metrics == nil {
		return
	}
	for _, o := range outcomes {
		switch {
		case o.Updated:
			s.metrics.Outcomes.WithLabelValues("updated").Inc()
		case o.Message == msgNoQuantityChange:
			s.metrics.Outcomes.WithLabelValues("noop").Inc()
		default:
			s.metrics.Outcomes.WithLabelValues("failed").Inc()
		}
	}
}
