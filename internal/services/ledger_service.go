package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"orgledger/internal/cache"
	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/log"
	"orgledger/internal/storage"
)

// OtherNonProject labels the organization-level line of a breakdown.
const OtherNonProject = "Other (Non-Project)"

// LedgerConfig sizes the derived-view caches.
type LedgerConfig struct {
	CacheSize int
	CacheTTL  time.Duration
	// TopN is used by Rankings when the caller passes n <= 0.
	TopN int
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		CacheSize: 100,
		CacheTTL:  5 * time.Minute,
		TopN:      5,
	}
}

// Dashboard is the organization view: headline totals, one roll-up per
// project and the organization-level contribution.
type Dashboard struct {
	Organization core.Organization
	Summary      finance.OrganizationSummary
	Projects     []finance.ProjectSummary
	OrgLevelAR   decimal.Decimal
	OrgLevelAP   decimal.Decimal
}

// Contribution is one project's share of a breakdown direction.
type Contribution struct {
	ProjectID   string
	ProjectName string
	Amount      decimal.Decimal
	Percent     decimal.Decimal
}

// Breakdown is the category and project split of AR or AP over a period.
type Breakdown struct {
	Direction  finance.Direction
	Period     finance.Period
	Total      decimal.Decimal
	Categories []finance.CategoryAmount
	// Projects ends with an OtherNonProject line when org-level
	// transactions contribute.
	Projects []Contribution
}

type Rankings struct {
	TopProfitable []finance.ProjectSummary
	TopLoss       []finance.ProjectSummary
	RevenueShare  []finance.Share
}

// ledgerData is everything the derived views are computed from.
type ledgerData struct {
	organization core.Organization
	projects     []core.Project
	transactions []core.Transaction
	counts       finance.Counts
}

// LedgerService computes the organization-level financial views. Results
// are cached per organization and dropped by Invalidate.
type LedgerService struct {
	store      *storage.SQLiteRepository
	config     LedgerConfig
	logger     *log.Logger
	dashboards *cache.LRUCache[Dashboard]
	breakdowns *cache.LRUCache[Breakdown]
	group      singleflight.Group

	// generations counts invalidations per organization. A view computed
	// from data loaded before an invalidation is not cached.
	genMu       sync.Mutex
	generations map[int64]uint64
}

func NewLedgerService(store *storage.SQLiteRepository, config LedgerConfig, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	if config.TopN <= 0 {
		config.TopN = DefaultLedgerConfig().TopN
	}
	return &LedgerService{
		store:       store,
		config:      config,
		logger:      logger.WithComponent(log.ComponentLedger),
		dashboards:  cache.NewLRUCache[Dashboard](config.CacheSize, config.CacheTTL),
		breakdowns:  cache.NewLRUCache[Breakdown](config.CacheSize, config.CacheTTL),
		generations: make(map[int64]uint64),
	}
}

// Caches exposes the service caches so a cache.Manager can expire them.
func (s *LedgerService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.dashboards, s.breakdowns}
}

// Invalidate drops every cached view of the organization.
func (s *LedgerService) Invalidate(organizationID int64) {
	s.genMu.Lock()
	s.generations[organizationID]++
	prefix := cache.OrgPrefix(organizationID)
	n := s.dashboards.DeletePrefix(prefix) + s.breakdowns.DeletePrefix(prefix)
	s.genMu.Unlock()
	if n > 0 {
		s.logger.Debug("Ledger cache invalidated", log.FieldOrganizationID, organizationID, "entries", n)
	}
}

func (s *LedgerService) generation(organizationID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[organizationID]
}

// setIfCurrent caches v unless the organization was invalidated after gen
// was read.
func setIfCurrent[T any](s *LedgerService, c *cache.LRUCache[T], organizationID int64, gen uint64, key string, v T) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[organizationID] != gen {
		return false
	}
	c.Set(key, v)
	return true
}

// load fetches the organization, its projects, its transactions and its
// counts concurrently.
func (s *LedgerService) load(ctx context.Context, organizationID int64) (ledgerData, error) {
	var d ledgerData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := s.store.GetOrganization(gctx, organizationID)
		d.organization = o
		return err
	})
	g.Go(func() error {
		p, err := s.store.ListProjects(gctx, organizationID)
		d.projects = p
		return err
	})
	g.Go(func() error {
		t, err := s.store.ListOrganizationTransactions(gctx, organizationID)
		d.transactions = t
		return err
	})
	g.Go(func() error {
		c, err := s.store.OrganizationCounts(gctx, organizationID)
		d.counts = c
		return err
	})
	if err := g.Wait(); err != nil {
		return ledgerData{}, fmt.Errorf("load organization %d: %w", organizationID, err)
	}
	return d, nil
}

// OrganizationDashboard returns the roll-up of every project plus the
// organization-level transactions. Concurrent misses for the same
// organization share one load.
func (s *LedgerService) OrganizationDashboard(ctx context.Context, organizationID int64) (Dashboard, error) {
	key := cache.OrgKey(organizationID, "dashboard")
	if d, ok := s.dashboards.Get(key); ok {
		return d, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		gen := s.generation(organizationID)
		data, err := s.load(ctx, organizationID)
		if err != nil {
			return Dashboard{}, err
		}
		rollups, orgLevel := finance.RollUpProjects(data.projects, data.transactions)
		orgAR, orgAP := finance.Totals(orgLevel)
		d := Dashboard{
			Organization: data.organization,
			Summary:      finance.RollUpOrganization(rollups, orgLevel, data.counts),
			Projects:     rollups,
			OrgLevelAR:   orgAR,
			OrgLevelAP:   orgAP,
		}
		cached := setIfCurrent(s, s.dashboards, organizationID, gen, key, d)
		s.logger.DebugContext(ctx, "Dashboard computed",
			log.FieldOrganizationID, organizationID,
			"cached", cached,
			"projects", len(rollups),
			"transactions", len(data.transactions))
		return d, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return v.(Dashboard), nil
}

// ProjectSummary rolls up a single project.
func (s *LedgerService) ProjectSummary(ctx context.Context, projectID int64) (finance.ProjectSummary, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return finance.ProjectSummary{}, err
	}
	txs, err := s.store.ListProjectTransactions(ctx, projectID)
	if err != nil {
		return finance.ProjectSummary{}, err
	}
	return finance.RollUpProject(p, txs), nil
}

// Breakdown splits AR or AP of the organization by category and by project
// over the given period.
func (s *LedgerService) Breakdown(ctx context.Context, organizationID int64, dir finance.Direction, period finance.Period) (Breakdown, error) {
	if dir == finance.Neither {
		return Breakdown{}, fmt.Errorf("%w: breakdown direction must be ar or ap", core.ErrInvalidInput)
	}
	key := cache.OrgKey(organizationID, "breakdown", dir.String(), string(period.Kind), period.Start.String(), period.End.String())
	if b, ok := s.breakdowns.Get(key); ok {
		return b, nil
	}

	gen := s.generation(organizationID)
	data, err := s.load(ctx, organizationID)
	if err != nil {
		return Breakdown{}, err
	}
	txs := finance.FilterByPeriod(data.transactions, period)
	byCategory := finance.AggregateByCategory(txs, dir)

	b := Breakdown{
		Direction:  dir,
		Period:     period,
		Total:      decimal.Zero,
		Categories: finance.SortCategories(byCategory),
	}
	for _, c := range b.Categories {
		b.Total = b.Total.Add(c.Amount)
	}

	rollups, orgLevel := finance.RollUpProjects(data.projects, txs)
	for _, r := range rollups {
		amount := r.AR
		if dir == finance.AP {
			amount = r.AP
		}
		if amount.IsZero() {
			continue
		}
		b.Projects = append(b.Projects, Contribution{
			ProjectID:   r.ProjectID,
			ProjectName: r.ProjectName,
			Amount:      amount,
			Percent:     finance.Percent(amount, b.Total),
		})
	}
	orgAR, orgAP := finance.Totals(orgLevel)
	other := orgAR
	if dir == finance.AP {
		other = orgAP
	}
	if !other.IsZero() {
		b.Projects = append(b.Projects, Contribution{
			ProjectName: OtherNonProject,
			Amount:      other,
			Percent:     finance.Percent(other, b.Total),
		})
	}

	setIfCurrent(s, s.breakdowns, organizationID, gen, key, b)
	return b, nil
}

// Rankings returns the top n profitable and loss-making projects and every
// project's revenue share.
func (s *LedgerService) Rankings(ctx context.Context, organizationID int64, n int) (Rankings, error) {
	if n <= 0 {
		n = s.config.TopN
	}
	d, err := s.OrganizationDashboard(ctx, organizationID)
	if err != nil {
		return Rankings{}, err
	}
	return Rankings{
		TopProfitable: finance.TopProfitable(d.Projects, n),
		TopLoss:       finance.TopLoss(d.Projects, n),
		RevenueShare:  finance.RevenueShare(d.Projects),
	}, nil
}

// Trend buckets the organization's transactions by month.
func (s *LedgerService) Trend(ctx context.Context, organizationID int64, dir finance.Direction, months int) ([]finance.TrendPoint, error) {
	if _, err := s.store.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	txs, err := s.store.ListOrganizationTransactions(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return finance.MonthlyTrend(txs, dir, months), nil
}
