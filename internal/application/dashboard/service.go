package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailpos/backoffice/internal/domain/analytics"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/cache"
)

// DefaultTTL is how long a computed overview stays fresh.
const DefaultTTL = 5 * time.Minute

// Query identifies one dashboard view: a date range plus an optional
// entity filter. Equal queries share one cache slot.
type Query struct {
	Range  analytics.DateRange
	Filter analytics.EntityFilter
}

// CacheKey is deterministic: the same logical query always produces the
// same key regardless of the order filter ids were supplied in.
func (q Query) CacheKey() string {
	return q.Range.Key() + "|" + q.Filter.Key()
}

// Snapshot is what a caller gets back from a load. Stale marks data
// served past its TTL while a refresh runs behind it.
type Snapshot struct {
	Data        *analytics.Overview `json:"data"`
	Stale       bool                `json:"stale"`
	RefreshedAt time.Time           `json:"refreshed_at"`
}

type flight struct {
	done chan struct{}
	snap Snapshot
	err  error
}

// Service loads dashboard overviews through the result cache. Loads for
// the same key collapse into one underlying fetch; expired entries are
// served stale while the fetch runs.
type Service struct {
	queries DashboardQueries
	feed    SalesFeed
	groups  CustomerGroupDirectory
	results cache.ResultCache
	logger  *zap.Logger

	loc     *time.Location
	ttl     time.Duration
	topN    int
	recentN int
	now     func() time.Time

	mu      sync.Mutex
	flights map[string]*flight
}

// ServiceConfig carries the tunables; zero values fall back to defaults.
type ServiceConfig struct {
	TTL          time.Duration
	TopN         int
	RecentOrders int
	Location     *time.Location
}

func NewService(queries DashboardQueries, feed SalesFeed, groups CustomerGroupDirectory, results cache.ResultCache, logger *zap.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TopN <= 0 {
		cfg.TopN = analytics.DefaultTopN
	}
	if cfg.RecentOrders <= 0 {
		cfg.RecentOrders = analytics.DefaultRecentOrders
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		queries: queries,
		feed:    feed,
		groups:  groups,
		results: results,
		logger:  logger,
		loc:     cfg.Location,
		ttl:     cfg.TTL,
		topN:    cfg.TopN,
		recentN: cfg.RecentOrders,
		now:     time.Now,
		flights: make(map[string]*flight),
	}
}

// Load serves the overview for q, preferring the cache. An expired entry
// is returned immediately marked stale while a background fetch renews
// it; a cold miss blocks until the fetch completes.
func (s *Service) Load(ctx context.Context, q Query) (Snapshot, error) {
	return s.load(ctx, q, false)
}

// Refresh bypasses freshness and recomputes the overview. Concurrent
// refreshes of the same key still collapse into one fetch.
func (s *Service) Refresh(ctx context.Context, q Query) (Snapshot, error) {
	return s.load(ctx, q, true)
}

func (s *Service) load(ctx context.Context, q Query, force bool) (Snapshot, error) {
	if !q.Range.Valid() {
		return Snapshot{}, fmt.Errorf("%w: unknown range kind %q", shared.ErrInvalidInput, q.Range.Kind)
	}
	w, err := analytics.Resolve(q.Range, s.now(), s.loc)
	if err != nil {
		return Snapshot{}, err
	}
	key := q.CacheKey()

	if !force {
		if v, at, err := s.results.Get(ctx, key); err == nil && v != nil {
			return Snapshot{Data: v, RefreshedAt: at}, nil
		} else if err != nil {
			s.logger.Warn("result cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	s.mu.Lock()
	if f, ok := s.flights[key]; ok {
		s.mu.Unlock()
		// Someone else is already fetching this key.
		if !force {
			if stale := s.staleFor(ctx, key); stale != nil {
				return *stale, nil
			}
		}
		select {
		case <-f.done:
			return f.snap, f.err
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	s.flights[key] = f
	s.mu.Unlock()

	if !force {
		if stale := s.staleFor(ctx, key); stale != nil {
			go s.runFlight(context.WithoutCancel(ctx), q, w, key, f)
			return *stale, nil
		}
	}
	s.runFlight(ctx, q, w, key, f)
	return f.snap, f.err
}

// staleFor returns an expired entry wrapped as a stale snapshot, or nil.
// The refresh stamp comes from the cache entry itself, so it stays
// meaningful for entries a previous process instance wrote.
func (s *Service) staleFor(ctx context.Context, key string) *Snapshot {
	v, at, err := s.results.GetStale(ctx, key)
	if err != nil || v == nil {
		return nil
	}
	return &Snapshot{Data: v, Stale: true, RefreshedAt: at}
}

func (s *Service) runFlight(ctx context.Context, q Query, w analytics.Window, key string, f *flight) {
	defer func() {
		s.mu.Lock()
		delete(s.flights, key)
		s.mu.Unlock()
		close(f.done)
	}()

	overview, err := s.build(ctx, q, w)
	if err != nil {
		f.err = err
		s.logger.Warn("dashboard load failed",
			zap.String("key", key),
			zap.Error(err))
		return
	}
	if err := s.results.Set(ctx, key, overview, s.ttl); err != nil {
		s.logger.Warn("result cache write failed", zap.String("key", key), zap.Error(err))
	}
	f.snap = Snapshot{Data: overview, RefreshedAt: s.now()}
}

func (s *Service) build(ctx context.Context, q Query, w analytics.Window) (*analytics.Overview, error) {
	if q.Filter.Active() {
		return s.buildFiltered(ctx, q, w)
	}
	return s.buildComposite(ctx, q, w)
}

// buildFiltered fetches raw rows for the window and reduces them in
// process. Any fetch error fails the whole load: a partially filtered
// dashboard would silently misreport.
func (s *Service) buildFiltered(ctx context.Context, q Query, w analytics.Window) (*analytics.Overview, error) {
	memberIDs, err := s.resolveGroupMembers(ctx, q)
	if err != nil {
		return nil, err
	}

	sales, err := s.feed.FetchSales(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDashboardLoad, err)
	}
	items, err := s.feed.FetchItems(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDashboardLoad, err)
	}

	sets := q.Filter.Sets(memberIDs)
	fsales, fitems := analytics.Apply(sales, items, sets)
	overview := analytics.Aggregate(fsales, fitems, s.loc, s.topN)

	// Purchases are not entity-scoped; the slice stays window-only.
	purchases, err := s.queries.PurchaseTotal(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDashboardLoad, err)
	}
	overview.PurchaseTotal = purchases
	return &overview, nil
}

func (s *Service) resolveGroupMembers(ctx context.Context, q Query) ([]uuid.UUID, error) {
	gids := q.Filter.GroupIDs()
	if len(gids) == 0 {
		return nil, nil
	}
	ids, err := s.groups.MemberIDs(ctx, gids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDashboardLoad, err)
	}
	return ids, nil
}

// buildComposite runs the unfiltered slices concurrently against the
// pre-aggregated queries. A failed slice degrades to its zero value; the
// load only fails outright when every slice fails.
func (s *Service) buildComposite(ctx context.Context, q Query, w analytics.Window) (*analytics.Overview, error) {
	overview := &analytics.Overview{
		Trend:        []analytics.TrendPoint{},
		TopProducts:  []analytics.ProductSales{},
		TopCustomers: []analytics.CustomerSales{},
		Categories:   []analytics.CategoryShare{},
		RecentOrders: []analytics.RecentOrder{},
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		failures []error
	)
	fail := func(slice string, err error) {
		s.logger.Warn("dashboard slice failed", zap.String("slice", slice), zap.Error(err))
		errMu.Lock()
		failures = append(failures, fmt.Errorf("%s: %w", slice, err))
		errMu.Unlock()
	}

	run := func(slice string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				fail(slice, err)
			}
		}()
	}

	run("kpis", func() error {
		kpis, err := s.queries.KPISummary(ctx, w)
		if err != nil {
			return err
		}
		if q.Range.Kind != analytics.RangeAll {
			if prev, err := s.queries.KPISummary(ctx, w.Previous()); err == nil {
				kpis = kpis.GrowthAgainst(prev)
			} else {
				s.logger.Warn("previous period comparison skipped", zap.Error(err))
			}
		}
		overview.KPIs = kpis
		return nil
	})
	run("trend", func() error {
		points, err := s.queries.DailyTrend(ctx, w)
		if err != nil {
			return err
		}
		overview.Trend = points
		return nil
	})
	run("top_products", func() error {
		rows, err := s.queries.TopProducts(ctx, w, s.topN)
		if err != nil {
			return err
		}
		overview.TopProducts = rows
		return nil
	})
	run("top_customers", func() error {
		rows, err := s.queries.TopCustomers(ctx, w, s.topN)
		if err != nil {
			return err
		}
		overview.TopCustomers = rows
		return nil
	})
	run("categories", func() error {
		rows, err := s.queries.CategoryShares(ctx, w)
		if err != nil {
			return err
		}
		overview.Categories = rows
		return nil
	})
	run("channels", func() error {
		split, err := s.queries.ChannelBreakdown(ctx, w)
		if err != nil {
			return err
		}
		overview.Channels = split
		return nil
	})
	run("recent_orders", func() error {
		rows, err := s.queries.RecentOrders(ctx, w, s.recentN)
		if err != nil {
			return err
		}
		overview.RecentOrders = rows
		return nil
	})
	run("purchases", func() error {
		total, err := s.queries.PurchaseTotal(ctx, w)
		if err != nil {
			return err
		}
		overview.PurchaseTotal = total
		return nil
	})

	wg.Wait()

	if len(failures) == sliceCount {
		return nil, fmt.Errorf("%w: all slices failed: %v", shared.ErrDashboardLoad, failures[0])
	}
	return overview, nil
}

const sliceCount = 8
