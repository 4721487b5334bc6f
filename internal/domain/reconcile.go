package domain

// =============================================================================
// SUPPLIER DATA TYPES
// =============================================================================

// SupplierRecord is one row of supplier truth extracted from an uploaded file.
// Immutable once extracted; consumed by the matcher and discarded afterwards.
type SupplierRecord struct {
	// SKU is the join key against the remote catalog. Always trimmed and
	// non-empty; rows with a blank identifier cell are dropped at extraction.
	SKU string `json:"sku"`

	// Cost is the supplier unit cost, cleaned from raw text. Unparseable
	// values become 0.
	Cost float64 `json:"cost"`

	// StockOnHand is the supplier stock level. Nil when the user mapped no
	// stock column, which signals "no quantity change requested".
	StockOnHand *int `json:"stockOnHand,omitempty"`
}

// =============================================================================
// MARGIN CLASSIFICATION
// =============================================================================

// MarginStatus is the three-level classification of an item's margin
// against the session threshold.
type MarginStatus string

const (
	MarginGood     MarginStatus = "good"
	MarginMedium   MarginStatus = "medium"
	MarginNegative MarginStatus = "negative"
)

// StatusFilter selects which items a filtered view returns.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterMedium   StatusFilter = "medium"
	FilterNegative StatusFilter = "negative"
)

// =============================================================================
// RECONCILED ITEMS
// =============================================================================

// ReconciledItem is the working unit of the preview/commit stage: one matched
// (SupplierRecord, catalog variant) pair plus the user-editable update state.
//
// MarginPercent and Status are pure functions of (Price, NewCost, threshold)
// and must be recomputed whenever any of the three changes.
type ReconciledItem struct {
	// Identity within the remote catalog.
	ParentID        string `json:"parentId"`
	VariantID       string `json:"variantId"`
	InventoryItemID string `json:"inventoryItemId"`
	SKU             string `json:"sku"`
	DisplayName     string `json:"displayName"`
	ImageURL        string `json:"imageUrl,omitempty"`

	// Current catalog snapshot.
	CurrentCost     float64 `json:"currentCost"`
	CurrentPrice    float64 `json:"currentPrice"`
	CurrentQuantity int     `json:"currentQuantity"`

	// Incoming supplier values. NewQuantity equals CurrentQuantity when the
	// supplier record carried no stock level.
	NewCost     float64 `json:"newCost"`
	NewQuantity int     `json:"newQuantity"`

	// Derived margin state.
	MarginPercent float64      `json:"marginPercent"`
	Status        MarginStatus `json:"marginStatus"`

	// User-editable update state.
	IncludeInUpdate bool    `json:"includeInUpdate"`
	Price           float64 `json:"price"`
}

// Stats aggregates the current state of a reconciliation session.
type Stats struct {
	Good     int `json:"good"`
	Medium   int `json:"medium"`
	Negative int `json:"negative"`
	Total    int `json:"total"`
	ToUpdate int `json:"toUpdate"`
}

// =============================================================================
// COMMIT RESULTS
// =============================================================================

// UpdateOutcome reports the result of one item's commit attempt.
type UpdateOutcome struct {
	SKU     string `json:"sku"`
	Updated bool   `json:"updated"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// BatchRunState is the externally observable progress of a commit run.
// CurrentBatch advances monotonically within one run and Outcomes only
// grows; both are reset before a new run starts.
type BatchRunState struct {
	RunID        string          `json:"runId"`
	CurrentBatch int             `json:"currentBatch"`
	TotalBatches int             `json:"totalBatches"`
	Outcomes     []UpdateOutcome `json:"outcomes"`
	Running      bool            `json:"running"`
}
