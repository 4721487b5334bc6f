package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/sif/internal/domain"
	"github.com/dukerupert/sif/internal/margin"
	"github.com/dukerupert/sif/internal/tabular"
	"github.com/google/uuid"
)

// ReconciliationService owns the in-memory workflow sessions: uploaded rows,
// the user's column mapping, the reconciled item list with its derived views,
// and the state of an in-flight commit run.
//
// Derived views (filtering, stats) are always computed from current item
// state, never cached. Sessions are not persisted; a workflow restart is a
// new session.
type ReconciliationService interface {
	CreateSession(csvText string) (*SessionView, error)
	DeleteSession(id string) error
	View(id string) (*SessionView, error)

	SetMappingField(id string, field tabular.Field, value int) (*SessionView, error)
	StartLookup(ctx context.Context, id string, params StartLookupParams) (*LookupResult, error)

	SetPrice(id, variantID string, price float64) error
	ToggleInclude(id, variantID string) error
	SetIncludedSet(id string, variantIDs []string) error
	SetThreshold(id string, threshold float64) error
	SetFilter(id string, filter domain.StatusFilter) error

	StartCommit(ctx context.Context, id string, req CommitRequest) (string, error)
	RunState(id string) (*domain.BatchRunState, error)
}

// StartLookupParams carries the caller's lookup options. A nil Threshold
// keeps the session's current value; zero is a valid threshold, not "unset".
type StartLookupParams struct {
	Threshold  *float64
	LocationID string
}

// CommitRequest selects what a commit run writes.
type CommitRequest struct {
	// Mode is "stock" or "pricing".
	Mode string `json:"mode" validate:"required,oneof=stock pricing"`

	// LocationID scopes inventory writes. Falls back to the configured
	// default location when empty.
	LocationID string `json:"locationId"`

	// AlsoUpdateStock adds the secondary inventory pass to a pricing run.
	AlsoUpdateStock bool `json:"alsoUpdateStock"`
}

// SessionView is the host-facing snapshot of one session.
type SessionView struct {
	ID              string                  `json:"id"`
	Headers         []string                `json:"headers"`
	RowCount        int                     `json:"rowCount"`
	Mapping         tabular.ColumnMapping   `json:"mapping"`
	MappingComplete bool                    `json:"mappingComplete"`
	Threshold       float64                 `json:"threshold"`
	Filter          domain.StatusFilter     `json:"filter"`
	Items           []domain.ReconciledItem `json:"items"`
	NotFound        []string                `json:"notFound"`
	Stats           domain.Stats            `json:"stats"`
	Run             domain.BatchRunState    `json:"run"`
}

// SessionConfig carries workflow defaults from configuration.
type SessionConfig struct {
	DefaultThreshold     float64
	DefaultLocationID    string
	RequireStockResolved bool
}

type session struct {
	mu sync.Mutex

	id         string
	rows       [][]string
	mapping    tabular.ColumnMapping
	threshold  float64
	filter     domain.StatusFilter
	items      []domain.ReconciledItem
	notFound   []string
	reconciled bool
	run        domain.BatchRunState
}

type reconciliationService struct {
	mu       sync.RWMutex
	sessions map[string]*session

	matcher MatcherService
	commit  CommitService
	cfg     SessionConfig
	logger  *slog.Logger
}

// NewReconciliationService creates the session store.
func NewReconciliationService(matcher MatcherService, commit CommitService, cfg SessionConfig, logger *slog.Logger) ReconciliationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reconciliationService{
		sessions: make(map[string]*session),
		matcher:  matcher,
		commit:   commit,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateSession parses the uploaded text and opens a fresh session with an
// all-unset mapping.
func (s *reconciliationService) CreateSession(csvText string) (*SessionView, error) {
	rows := tabular.Parse(csvText)
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	sess := &session{
		id:        uuid.New().String(),
		rows:      rows,
		mapping:   tabular.NewColumnMapping(),
		threshold: s.cfg.DefaultThreshold,
		filter:    domain.FilterAll,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("session created", slog.String("session_id", sess.id), slog.Int("rows", len(rows)))

	return sess.view(), nil
}

func (s *reconciliationService) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *reconciliationService) View(id string) (*SessionView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// SetMappingField assigns one semantic field to a column index,
// tabular.Unset, or (stock only) tabular.NoStock.
func (s *reconciliationService) SetMappingField(id string, field tabular.Field, value int) (*SessionView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mapping.Set(field, value); err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// StartLookup extracts supplier records with the session's mapping and
// resolves them against the catalog. Replaces any previous reconciliation
// result in the session.
func (s *reconciliationService) StartLookup(ctx context.Context, id string, params StartLookupParams) (*LookupResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.run.Running {
		sess.mu.Unlock()
		return nil, ErrCommitRunning
	}
	if !sess.mapping.Complete() {
		sess.mu.Unlock()
		return nil, ErrMappingIncomplete
	}
	if s.cfg.RequireStockResolved && !sess.mapping.StockResolved() {
		sess.mu.Unlock()
		return nil, ErrStockUnresolved
	}
	rows := sess.rows
	mapping := sess.mapping
	if params.Threshold != nil {
		sess.threshold = *params.Threshold
	}
	threshold := sess.threshold
	sess.mu.Unlock()

	records := tabular.Extract(rows, mapping)
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	locationID := params.LocationID
	if locationID == "" {
		locationID = s.cfg.DefaultLocationID
	}

	result, err := s.matcher.Lookup(ctx, records, LookupParams{
		Threshold:  threshold,
		LocationID: locationID,
	})
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.items = result.Items
	sess.notFound = result.NotFound
	sess.reconciled = true
	sess.run = domain.BatchRunState{}
	sess.mu.Unlock()

	return result, nil
}

// SetPrice updates one item's editable price and recomputes its margin and
// status against the session threshold. Other items are unaffected.
func (s *reconciliationService) SetPrice(id, variantID string, price float64) error {
	return s.mutateItem(id, variantID, func(sess *session, item *domain.ReconciledItem) {
		item.Price = price
		item.MarginPercent = margin.Percent(price, item.NewCost)
		item.Status = margin.Status(item.MarginPercent, sess.threshold)
	})
}

// ToggleInclude flips one item's inclusion in the next commit run.
func (s *reconciliationService) ToggleInclude(id, variantID string) error {
	return s.mutateItem(id, variantID, func(_ *session, item *domain.ReconciledItem) {
		item.IncludeInUpdate = !item.IncludeInUpdate
	})
}

// SetIncludedSet includes exactly the given variant IDs and excludes all
// others (bulk replace, used for "select visible page").
func (s *reconciliationService) SetIncludedSet(id string, variantIDs []string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(variantIDs))
	for _, v := range variantIDs {
		wanted[v] = true
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i := range sess.items {
		sess.items[i].IncludeInUpdate = wanted[sess.items[i].VariantID]
	}
	return nil
}

// SetThreshold stores a new threshold and reclassifies every item from its
// existing margin. Margin values themselves are unaffected.
func (s *reconciliationService) SetThreshold(id string, threshold float64) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.threshold = threshold
	for i := range sess.items {
		sess.items[i].Status = margin.Status(sess.items[i].MarginPercent, threshold)
	}
	return nil
}

func (s *reconciliationService) SetFilter(id string, filter domain.StatusFilter) error {
	switch filter {
	case domain.FilterAll, domain.FilterMedium, domain.FilterNegative:
	default:
		return domain.Errorf(domain.EINVALID, "reconcile.filter", "unknown filter: %s", filter)
	}

	sess, err := s.session(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.filter = filter
	return nil
}

// StartCommit freezes a snapshot of the included items and runs the commit
// asynchronously. Progress and outcomes stream into the session's run state;
// the host polls RunState (or View) to observe "batch X of Y" and the
// accumulating outcome list.
func (s *reconciliationService) StartCommit(ctx context.Context, id string, req CommitRequest) (string, error) {
	sess, err := s.session(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	if !sess.reconciled {
		sess.mu.Unlock()
		return "", ErrNotReconciled
	}
	if sess.run.Running {
		sess.mu.Unlock()
		return "", ErrCommitRunning
	}

	included := make([]domain.ReconciledItem, 0, len(sess.items))
	for _, item := range sess.items {
		if item.IncludeInUpdate {
			included = append(included, item)
		}
	}
	if len(included) == 0 {
		sess.mu.Unlock()
		return "", ErrNothingIncluded
	}

	runID := uuid.New().String()
	sess.run = domain.BatchRunState{RunID: runID, Running: true}
	sess.mu.Unlock()

	locationID := req.LocationID
	if locationID == "" {
		locationID = s.cfg.DefaultLocationID
	}

	params := CommitParams{
		LocationID:      locationID,
		AlsoUpdateStock: req.AlsoUpdateStock,
		Observer: CommitObserver{
			OnBatchStart: func(current, total int) {
				sess.mu.Lock()
				sess.run.CurrentBatch = current
				sess.run.TotalBatches = total
				sess.mu.Unlock()
			},
			OnBatchDone: func(outcomes []domain.UpdateOutcome) {
				sess.mu.Lock()
				sess.run.Outcomes = append(sess.run.Outcomes, outcomes...)
				sess.mu.Unlock()
			},
		},
	}

	// The run outlives the originating request; only its values survive.
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer func() {
			sess.mu.Lock()
			sess.run.Running = false
			sess.mu.Unlock()
		}()

		var runErr error
		if req.Mode == "stock" {
			_, runErr = s.commit.CommitStock(runCtx, included, params)
		} else {
			_, runErr = s.commit.CommitPricing(runCtx, included, params)
		}
		if runErr != nil {
			s.logger.Error("commit run stopped early",
				slog.String("session_id", id),
				slog.String("run_id", runID),
				slog.Any("error", runErr))
		}
	}()

	return runID, nil
}

func (s *reconciliationService) RunState(id string) (*domain.BatchRunState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	state := sess.run
	state.Outcomes = append([]domain.UpdateOutcome(nil), sess.run.Outcomes...)
	return &state, nil
}

func (s *reconciliationService) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *reconciliationService) mutateItem(id, variantID string, fn func(*session, *domain.ReconciledItem)) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i := range sess.items {
		if sess.items[i].VariantID == variantID {
			fn(sess, &sess.items[i])
			return nil
		}
	}
	return ErrItemNotFound
}

// view builds the host-facing snapshot. Caller holds sess.mu.
func (sess *session) view() *SessionView {
	v := &SessionView{
		ID:              sess.id,
		RowCount:        len(sess.rows) - 1,
		Mapping:         sess.mapping,
		MappingComplete: sess.mapping.Complete(),
		Threshold:       sess.threshold,
		Filter:          sess.filter,
		NotFound:        sess.notFound,
		Run:             sess.run,
	}
	// Detach the outcome slice from the live run state.
	v.Run.Outcomes = append([]domain.UpdateOutcome(nil), sess.run.Outcomes...)
	if len(sess.rows) > 0 {
		v.Headers = sess.rows[0]
	}

	for _, item := range sess.items {
		v.Stats.Total++
		if item.IncludeInUpdate {
			v.Stats.ToUpdate++
		}
		switch item.Status {
		case domain.MarginGood:
			v.Stats.Good++
		case domain.MarginMedium:
			v.Stats.Medium++
		case domain.MarginNegative:
			v.Stats.Negative++
		}

		switch sess.filter {
		case domain.FilterMedium:
			if item.Status == domain.MarginMedium {
				v.Items = append(v.Items, item)
			}
		case domain.FilterNegative:
			if item.Status == domain.MarginNegative {
				v.Items = append(v.Items, item)
			}
		default:
			v.Items = append(v.Items, item)
		}
	}

	return v
}
