package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/cache"
	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/clock"
	"github.com/mediflow/billing/internal/config"
	settlementdomain "github.com/mediflow/billing/internal/settlement/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   config.Config
	Cache cache.Cache[string, *settlementdomain.Report]
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	ttl   time.Duration
	cache cache.Cache[string, *settlementdomain.Report]
}

func NewService(p Params) settlementdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settlement.service"),
		clock: p.Clock,
		ttl:   p.Cfg.SettlementCacheTTL,
		cache: p.Cache,
	}
}

// NewReportCache picks the cache backing settlement reports. A zero TTL
// disables caching entirely.
func NewReportCache(cfg config.Config) cache.Cache[string, *settlementdomain.Report] {
	if cfg.SettlementCacheTTL <= 0 {
		return cache.NoopCache[string, *settlementdomain.Report]{}
	}
	return cache.NewTTLCache[string, *settlementdomain.Report]()
}

type methodRow struct {
	PaymentMethod string
	Amount        decimal.Decimal
	Count         int64
}

type refundRow struct {
	Amount decimal.Decimal
	Count  int64
}

// Daily settles one business day. Only days that are fully over are cached;
// the running day keeps changing under the report.
func (s *Service) Daily(ctx context.Context, req settlementdomain.DailyRequest) (*settlementdomain.Report, error) {
	if req.Date.IsZero() {
		return nil, settlementdomain.ErrInvalidDate
	}

	start := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	now := s.clock.Now()

	key := cacheKey(start, req)
	closed := !end.After(now)
	if closed {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	paidQuery := s.db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Select("payment_method, COALESCE(SUM(actual_amount), 0) AS amount, COUNT(*) AS count").
		Where("charge_time >= ? AND charge_time < ?", start, end).
		Where("status IN ?", []chargedomain.Status{chargedomain.StatusPaid, chargedomain.StatusRefunded}).
		Group("payment_method")
	refundQuery := s.db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Select("COALESCE(SUM(refund_amount), 0) AS amount, COUNT(*) AS count").
		Where("refund_time >= ? AND refund_time < ?", start, end).
		Where("status = ?", chargedomain.StatusRefunded)
	if req.OperatorID != nil {
		paidQuery = paidQuery.Where("operator_id = ?", *req.OperatorID)
		refundQuery = refundQuery.Where("operator_id = ?", *req.OperatorID)
	}

	var methodRows []methodRow
	if err := paidQuery.Scan(&methodRows).Error; err != nil {
		return nil, err
	}
	var refunds refundRow
	if err := refundQuery.Scan(&refunds).Error; err != nil {
		return nil, err
	}

	report := &settlementdomain.Report{
		Date:        start.Format("2006-01-02"),
		OperatorID:  req.OperatorID,
		Methods:     make([]settlementdomain.MethodBucket, 0, len(methodRows)),
		TotalPaid:   decimal.Zero,
		TotalRefund: refunds.Amount,
		RefundCount: refunds.Count,
		GeneratedAt: now,
	}
	for _, row := range methodRows {
		report.Methods = append(report.Methods, settlementdomain.MethodBucket{
			Method: row.PaymentMethod,
			Amount: row.Amount,
			Count:  row.Count,
		})
		report.TotalPaid = report.TotalPaid.Add(row.Amount)
		report.PaidCount += row.Count
	}
	report.NetAmount = report.TotalPaid.Sub(report.TotalRefund)

	if closed {
		s.cache.Set(key, report, s.ttl)
	}

	s.log.Debug("daily settlement built",
		zap.String("date", report.Date),
		zap.String("total_paid", report.TotalPaid.StringFixed(2)),
		zap.String("total_refund", report.TotalRefund.StringFixed(2)),
	)
	return report, nil
}

func cacheKey(start time.Time, req settlementdomain.DailyRequest) string {
	key := start.Format("2006-01-02")
	if req.OperatorID != nil {
		key += ":" + req.OperatorID.String()
	}
	return key
}
