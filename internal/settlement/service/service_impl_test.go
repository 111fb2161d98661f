package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/config"
	"github.com/mediflow/billing/internal/migration"
	settlementdomain "github.com/mediflow/billing/internal/settlement/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var (
	settleDay = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	testNow   = time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, ttl time.Duration) settlementdomain.Service {
	t.Helper()
	cfg := config.Config{SettlementCacheTTL: ttl}
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fixedClock{now: testNow},
		Cfg:   cfg,
		Cache: NewReportCache(cfg),
	})
}

var nextTestID snowflake.ID

func newID() snowflake.ID {
	nextTestID++
	return nextTestID
}

type seedCharge struct {
	method     chargedomain.PaymentMethod
	amount     string
	chargeTime time.Time
	refunded   bool
	refundTime time.Time
	operatorID *snowflake.ID
}

func seed(t *testing.T, db *gorm.DB, rows []seedCharge) {
	t.Helper()
	for _, row := range rows {
		id := newID()
		amount := decimal.RequireFromString(row.amount)
		method := row.method
		chargeTime := row.chargeTime
		charge := &chargedomain.Charge{
			ID:             id,
			ChargeNo:       "CHG-" + id.String(),
			ChargeType:     chargedomain.ChargeTypeRegistration,
			RegistrationID: newID(),
			Status:         chargedomain.StatusPaid,
			TotalAmount:    amount,
			ActualAmount:   amount,
			PaymentMethod:  &method,
			ChargeTime:     &chargeTime,
			OperatorID:     row.operatorID,
		}
		if row.refunded {
			charge.Status = chargedomain.StatusRefunded
			refundAmount := amount
			refundTime := row.refundTime
			charge.RefundAmount = &refundAmount
			charge.RefundTime = &refundTime
		}
		if err := db.Create(charge).Error; err != nil {
			t.Fatalf("seed charge: %v", err)
		}
	}
}

func bucket(report *settlementdomain.Report, method string) (settlementdomain.MethodBucket, bool) {
	for _, b := range report.Methods {
		if b.Method == method {
			return b, true
		}
	}
	return settlementdomain.MethodBucket{}, false
}

func TestDailySettlementBuckets(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, 0)

	at := settleDay.Add(10 * time.Hour)
	seed(t, db, []seedCharge{
		{method: chargedomain.PaymentMethodCash, amount: "15.00", chargeTime: at},
		{method: chargedomain.PaymentMethodCash, amount: "20.00", chargeTime: at.Add(time.Hour)},
		{method: chargedomain.PaymentMethodCard, amount: "42.00", chargeTime: at},
		// Collected and refunded the same day: counted in both buckets.
		{method: chargedomain.PaymentMethodMobile, amount: "30.00", chargeTime: at,
			refunded: true, refundTime: at.Add(2 * time.Hour)},
		// Outside the day entirely.
		{method: chargedomain.PaymentMethodCash, amount: "99.00", chargeTime: at.Add(48 * time.Hour)},
	})

	report, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{Date: settleDay})
	if err != nil {
		t.Fatalf("daily: %v", err)
	}

	cash, ok := bucket(report, string(chargedomain.PaymentMethodCash))
	if !ok || !cash.Amount.Equal(decimal.RequireFromString("35.00")) || cash.Count != 2 {
		t.Fatalf("cash bucket = %+v, want 35.00 x2", cash)
	}
	card, ok := bucket(report, string(chargedomain.PaymentMethodCard))
	if !ok || !card.Amount.Equal(decimal.RequireFromString("42.00")) {
		t.Fatalf("card bucket = %+v, want 42.00", card)
	}
	mobile, ok := bucket(report, string(chargedomain.PaymentMethodMobile))
	if !ok || !mobile.Amount.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("mobile bucket = %+v, want 30.00", mobile)
	}

	if !report.TotalPaid.Equal(decimal.RequireFromString("107.00")) {
		t.Fatalf("total paid = %s, want 107.00", report.TotalPaid)
	}
	if !report.TotalRefund.Equal(decimal.RequireFromString("30.00")) || report.RefundCount != 1 {
		t.Fatalf("refund bucket = %s x%d, want 30.00 x1", report.TotalRefund, report.RefundCount)
	}
	if !report.NetAmount.Equal(decimal.RequireFromString("77.00")) {
		t.Fatalf("net = %s, want 77.00", report.NetAmount)
	}
}

func TestDailySettlementEmptyDay(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, 0)

	report, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{Date: settleDay})
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(report.Methods) != 0 {
		t.Fatalf("buckets = %d, want 0", len(report.Methods))
	}
	if !report.TotalPaid.IsZero() || !report.NetAmount.IsZero() {
		t.Fatalf("totals = %s/%s, want zero", report.TotalPaid, report.NetAmount)
	}
}

func TestDailySettlementOperatorFilter(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, 0)

	desk1 := newID()
	desk2 := newID()
	at := settleDay.Add(9 * time.Hour)
	seed(t, db, []seedCharge{
		{method: chargedomain.PaymentMethodCash, amount: "15.00", chargeTime: at, operatorID: &desk1},
		{method: chargedomain.PaymentMethodCash, amount: "20.00", chargeTime: at, operatorID: &desk2},
	})

	report, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{
		Date:       settleDay,
		OperatorID: &desk1,
	})
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if !report.TotalPaid.Equal(decimal.RequireFromString("15.00")) || report.PaidCount != 1 {
		t.Fatalf("filtered total = %s x%d, want 15.00 x1", report.TotalPaid, report.PaidCount)
	}
}

func TestDailySettlementCachesClosedDays(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, time.Hour)

	at := settleDay.Add(8 * time.Hour)
	seed(t, db, []seedCharge{
		{method: chargedomain.PaymentMethodCash, amount: "15.00", chargeTime: at},
	})

	first, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{Date: settleDay})
	if err != nil {
		t.Fatalf("first daily: %v", err)
	}

	// New rows after the first build must not change the cached closed day.
	seed(t, db, []seedCharge{
		{method: chargedomain.PaymentMethodCash, amount: "50.00", chargeTime: at},
	})

	second, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{Date: settleDay})
	if err != nil {
		t.Fatalf("second daily: %v", err)
	}
	if !second.TotalPaid.Equal(first.TotalPaid) {
		t.Fatalf("cached total = %s, want %s", second.TotalPaid, first.TotalPaid)
	}
}

func TestDailySettlementRunningDayNotCached(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, time.Hour)

	today := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	at := today.Add(8 * time.Hour)
	seed(t, db, []seedCharge{
		{method: chargedomain.PaymentMethodCash, amount: "15.00", chargeTime: at},
	})

	if _, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{Date: today}); err != nil {
		t.Fatalf("first daily: %v", err)
	}

	seed(t, db, []seedCharge{
		{method: chargedomain.PaymentMethodCash, amount: "5.00", chargeTime: at},
	})

	report, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{Date: today})
	if err != nil {
		t.Fatalf("second daily: %v", err)
	}
	if !report.TotalPaid.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("running-day total = %s, want 20.00", report.TotalPaid)
	}
}

func TestDailySettlementRejectsZeroDate(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db, 0)

	_, err := svc.Daily(context.Background(), settlementdomain.DailyRequest{})
	if err != settlementdomain.ErrInvalidDate {
		t.Fatalf("err = %v, want ErrInvalidDate", err)
	}
}
