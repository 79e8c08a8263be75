package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"weathernow/internal/forecasts"
	"weathernow/internal/types"
)

// CitySearcher resolves a typed name to ranked candidates.
type CitySearcher interface {
	Search(ctx context.Context, query string) ([]types.Location, error)
}

// Forecaster fetches the report for a resolved location.
type Forecaster interface {
	Forecast(ctx context.Context, loc types.Location) (*forecasts.Report, error)
}

// Controller drives the lookup flow and publishes each step to its Store.
//
// Every Search, Select and Confirm starts a new generation and cancels the
// request chain of the previous one. Results that arrive for an older
// generation are dropped and reported to their caller as
// conflict_request_superseded.
//
// Controller is safe for concurrent use. Its methods block until the chain
// they start finishes, so interactive callers run them on their own goroutine.
type Controller struct {
	store     *Store
	cities    CitySearcher
	forecasts Forecaster
	logger    *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	// closedThrough is the newest generation that Close has retired.
	closedThrough uint64
}

// NewController creates a Controller in the idle phase.
func NewController(cities CitySearcher, forecaster Forecaster, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:     NewStore(State{Phase: PhaseIdle}),
		cities:    cities,
		forecasts: forecaster,
		logger:    logger.With("component", "widget"),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.store.State()
}

// Subscribe registers fn for every state change. See Store.Subscribe.
//
// Subscribers run on the goroutine that changed the state. They may call
// State and Close, but must not call Search, Select or Confirm directly.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

// Search starts a new lookup for query. Prior weather, forecast window,
// selection and candidates are cleared before the geocoder is called.
//
// Two or more matches leave the widget in PhaseCandidatesShown with the first
// match as the provisional selection. A single match is resolved directly and
// its forecast fetched in the same call.
func (c *Controller) Search(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, types.MsgMissingCityQuery, nil)
	}

	reqCtx, gen, done, err := c.begin(ctx, func(State) (State, error) {
		return State{Phase: PhaseSearching, Query: q, Loading: true}, nil
	})
	if err != nil {
		return err
	}
	defer done()

	c.logger.DebugContext(ctx, "search started", "query", q, "generation", gen)

	results, err := c.cities.Search(reqCtx, q)
	if err == nil && len(results) == 0 {
		err = types.NewAppError(types.ErrCodeNotFoundCity, types.MsgNoCitiesFound, nil)
	}
	if err != nil {
		return c.fail(ctx, gen, err, types.ErrCodeUpstreamGeocoding, types.MsgGeocodingFailed)
	}

	candidates := slices.Clone(results)
	first := candidates[0]

	if len(candidates) > 1 {
		_, err := c.commit(gen, func(cur State) State {
			cur.Phase = PhaseCandidatesShown
			cur.Candidates = candidates
			cur.Selected = &first
			cur.Loading = false
			return cur
		})
		return err
	}

	if _, err := c.commit(gen, func(cur State) State {
		cur.Phase = PhaseAutoResolved
		cur.Candidates = candidates
		cur.Selected = &first
		return cur
	}); err != nil {
		return err
	}
	if _, err := c.commit(gen, func(cur State) State {
		return fetchingState(cur, first)
	}); err != nil {
		return err
	}
	return c.resolve(reqCtx, gen, first)
}

// Select commits the candidate at index (zero-based) and fetches its
// forecast. The candidate list is cleared as soon as the choice is accepted.
func (c *Controller) Select(ctx context.Context, index int) error {
	return c.choose(ctx, func(cur State) (types.Location, error) {
		if index < 0 || index >= len(cur.Candidates) {
			return types.Location{}, types.NewAppErrorWithDetails(
				types.ErrCodeValidationSelection,
				fmt.Sprintf("Choose a city between 1 and %d.", len(cur.Candidates)),
				nil,
				map[string]any{"index": index, "candidates": len(cur.Candidates)},
			)
		}
		return cur.Candidates[index], nil
	})
}

// Confirm accepts the provisional selection.
func (c *Controller) Confirm(ctx context.Context) error {
	return c.choose(ctx, func(cur State) (types.Location, error) {
		if cur.Selected == nil {
			return types.Location{}, errNoCandidates()
		}
		return *cur.Selected, nil
	})
}

// Close cancels whatever request chain is in flight. Results of that chain
// are dropped as superseded instead of being published as failures.
func (c *Controller) Close() {
	current := c.store.State().Generation

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closedThrough = max(c.closedThrough, current)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) choose(ctx context.Context, pick func(State) (types.Location, error)) error {
	var loc types.Location
	reqCtx, gen, done, err := c.begin(ctx, func(cur State) (State, error) {
		if cur.Phase != PhaseCandidatesShown || len(cur.Candidates) == 0 {
			return cur, errNoCandidates()
		}
		picked, err := pick(cur)
		if err != nil {
			return cur, err
		}
		loc = picked
		return fetchingState(cur, loc), nil
	})
	if err != nil {
		return err
	}
	defer done()

	c.logger.DebugContext(ctx, "location selected", "location", loc.Label(), "generation", gen)
	return c.resolve(reqCtx, gen, loc)
}

func (c *Controller) resolve(ctx context.Context, gen uint64, loc types.Location) error {
	report, err := c.forecasts.Forecast(ctx, loc)
	if err != nil {
		return c.fail(ctx, gen, err, types.ErrCodeUpstreamForecast, types.MsgForecastFailed)
	}

	snap := report.Snapshot
	window := report.Window
	if window == nil {
		window = []types.ForecastPoint{}
	}

	_, err = c.commit(gen, func(cur State) State {
		cur.Phase = PhaseResolved
		cur.Snapshot = &snap
		cur.Window = window
		cur.Loading = false
		cur.Err = nil
		return cur
	})
	if err == nil {
		c.logger.DebugContext(ctx, "forecast resolved",
			"location", loc.Label(),
			"window", len(window),
			"generation", gen,
		)
	}
	return err
}

// begin publishes the first state of a new generation and cancels the
// previous chain. The returned done func releases the chain's context.
func (c *Controller) begin(ctx context.Context, next func(cur State) (State, error)) (context.Context, uint64, func(), error) {
	st, err := c.store.Apply(func(cur State) (State, error) {
		n, err := next(cur)
		if err != nil {
			return cur, err
		}
		n.Generation = cur.Generation + 1
		return n, nil
	})
	if err != nil {
		return nil, 0, nil, err
	}

	gen := st.Generation
	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	switch {
	case gen <= c.gen || gen <= c.closedThrough:
		// A newer chain registered first, or Close already retired this one.
		cancel()
	default:
		if c.cancel != nil {
			c.cancel()
		}
		c.gen, c.cancel = gen, cancel
	}
	c.mu.Unlock()

	done := func() {
		cancel()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.cancel = nil
		}
	}
	return reqCtx, gen, done, nil
}

// commit applies next only while gen is still the current generation and
// has not been retired by Close.
func (c *Controller) commit(gen uint64, next func(cur State) State) (State, error) {
	return c.store.Apply(func(cur State) (State, error) {
		if cur.Generation != gen || c.retired(gen) {
			return cur, types.NewAppErrorWithDetails(
				types.ErrCodeConflictSuperseded,
				"A newer request replaced this one.",
				nil,
				map[string]any{"generation": gen, "current": cur.Generation},
			)
		}
		return next(cur), nil
	})
}

func (c *Controller) retired(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen <= c.closedThrough
}

func (c *Controller) fail(ctx context.Context, gen uint64, err error, fallback types.ErrorCode, message string) error {
	appErr := toAppError(err, fallback, message)

	_, cerr := c.commit(gen, func(cur State) State {
		cur.Phase = PhaseFailed
		cur.Candidates = nil
		cur.Snapshot = nil
		cur.Window = nil
		cur.Loading = false
		cur.Err = appErr
		return cur
	})
	if cerr != nil {
		c.logger.DebugContext(ctx, "dropping stale failure", "generation", gen, "error", err)
		return cerr
	}

	c.logger.InfoContext(ctx, "lookup failed",
		"code", string(appErr.Code),
		"generation", gen,
		"error", err,
	)
	return appErr
}

func fetchingState(cur State, loc types.Location) State {
	return State{
		Phase:      PhaseFetching,
		Query:      cur.Query,
		Selected:   &loc,
		Loading:    true,
		Generation: cur.Generation,
	}
}

func errNoCandidates() *types.AppError {
	return types.NewAppError(types.ErrCodeConflictNoCandidates, "There is no city to choose yet. Search first.", nil)
}

func toAppError(err error, fallback types.ErrorCode, message string) *types.AppError {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return types.NewAppError(fallback, message, err)
}
