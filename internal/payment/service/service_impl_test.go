package service

import (
	"context"
	"errors"
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
	chargerepository "github.com/mediflow/billing/internal/charge/repository"
	chargeservice "github.com/mediflow/billing/internal/charge/service"
	"github.com/mediflow/billing/internal/config"
	"github.com/mediflow/billing/internal/events"
	"github.com/mediflow/billing/internal/migration"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
	paymentdomain "github.com/mediflow/billing/internal/payment/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
	registrationservice "github.com/mediflow/billing/internal/registration/service"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db              *gorm.DB
	node            *snowflake.Node
	registrationSvc registrationdomain.Service
	chargeSvc       chargedomain.Service
	paymentSvc      paymentdomain.Service
}

func newFixture(t *testing.T) *fixture {
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

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := fixedClock{now: testNow}
	repo := chargerepository.Provide()

	registrationSvc := registrationservice.NewService(registrationservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
	})
	chargeSvc := chargeservice.NewService(chargeservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repo,
	})
	paymentSvc := NewService(Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clk,
		ChargeRepo:      repo,
		RegistrationSvc: registrationSvc,
		Authorizer:      NewAuthorizer(config.Config{}),
		Outbox:          events.NewOutbox(db, node),
	})

	return &fixture{
		db:              db,
		node:            node,
		registrationSvc: registrationSvc,
		chargeSvc:       chargeSvc,
		paymentSvc:      paymentSvc,
	}
}

func (f *fixture) newRegistrationCharge(t *testing.T) (*registrationdomain.Registration, *chargedomain.Charge) {
	t.Helper()
	reg, err := f.registrationSvc.Create(context.Background(), registrationdomain.CreateRequest{
		PatientName:     "Pat Doe",
		Department:      "Dermatology",
		RegistrationFee: decimal.RequireFromString("15.00"),
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	charge, err := f.chargeSvc.CreateRegistrationCharge(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	return reg, charge
}

func (f *fixture) newPrescriptionCharge(t *testing.T) (*prescriptiondomain.Prescription, *chargedomain.Charge) {
	t.Helper()
	reg, err := f.registrationSvc.Create(context.Background(), registrationdomain.CreateRequest{
		PatientName:     "Pat Doe",
		Department:      "Dermatology",
		RegistrationFee: decimal.RequireFromString("15.00"),
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	id := f.node.Generate()
	rx := &prescriptiondomain.Prescription{
		ID:             id,
		PrescriptionNo: "RX-" + id.String(),
		RegistrationID: reg.ID,
		Status:         prescriptiondomain.StatusReviewed,
		TotalAmount:    decimal.RequireFromString("42.00"),
	}
	if err := f.db.Create(rx).Error; err != nil {
		t.Fatalf("seed prescription: %v", err)
	}
	charge, err := f.chargeSvc.CreatePrescriptionCharge(context.Background(), reg.ID, []snowflake.ID{rx.ID})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	return rx, charge
}

func strptr(s string) *string { return &s }

func TestPayCashRegistrationCharge(t *testing.T) {
	f := newFixture(t)
	reg, charge := f.newRegistrationCharge(t)

	paid, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:   charge.ID,
		Method:     chargedomain.PaymentMethodCash,
		PaidAmount: decimal.RequireFromString("15.00"),
		Operator:   operatordomain.Operator{Name: "desk-1", Type: operatordomain.OperatorTypeUser},
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != chargedomain.StatusPaid {
		t.Fatalf("status = %s, want PAID", paid.Status)
	}
	if paid.TransactionNo != nil {
		t.Fatalf("cash payment stored transaction_no %q", *paid.TransactionNo)
	}
	if paid.ChargeTime == nil {
		t.Fatal("charge_time not set")
	}

	got, err := f.registrationSvc.GetByID(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.Status != registrationdomain.StatusPaidRegistration {
		t.Fatalf("registration status = %s, want PAID_REGISTRATION", got.Status)
	}

	var outboxCount int64
	if err := f.db.Model(&events.BillingEvent{}).
		Where("event_type = ?", events.EventChargePaid).Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("outbox rows = %d, want 1", outboxCount)
	}
}

func TestPayCardRequiresTransactionNo(t *testing.T) {
	f := newFixture(t)
	_, charge := f.newRegistrationCharge(t)

	_, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:   charge.ID,
		Method:     chargedomain.PaymentMethodCard,
		PaidAmount: decimal.RequireFromString("15.00"),
		Operator:   operatordomain.System(),
	})
	if !errors.Is(err, chargedomain.ErrMissingTransactionNo) {
		t.Fatalf("err = %v, want ErrMissingTransactionNo", err)
	}
}

func TestPayUnknownMethod(t *testing.T) {
	f := newFixture(t)
	_, charge := f.newRegistrationCharge(t)

	_, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:   charge.ID,
		Method:     chargedomain.PaymentMethod("CHEQUE"),
		PaidAmount: decimal.RequireFromString("15.00"),
		Operator:   operatordomain.System(),
	})
	if !errors.Is(err, chargedomain.ErrInvalidPaymentMethod) {
		t.Fatalf("err = %v, want ErrInvalidPaymentMethod", err)
	}
}

func TestPayAmountMismatch(t *testing.T) {
	f := newFixture(t)
	_, charge := f.newRegistrationCharge(t)

	_, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:   charge.ID,
		Method:     chargedomain.PaymentMethodCash,
		PaidAmount: decimal.RequireFromString("14.50"),
		Operator:   operatordomain.System(),
	})
	if !errors.Is(err, chargedomain.ErrAmountMismatch) {
		t.Fatalf("err = %v, want ErrAmountMismatch", err)
	}
}

func TestPayWithinTolerance(t *testing.T) {
	f := newFixture(t)
	_, charge := f.newRegistrationCharge(t)

	paid, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:   charge.ID,
		Method:     chargedomain.PaymentMethodCash,
		PaidAmount: decimal.RequireFromString("15.01"),
		Operator:   operatordomain.System(),
	})
	if err != nil {
		t.Fatalf("pay within tolerance: %v", err)
	}
	if paid.Status != chargedomain.StatusPaid {
		t.Fatalf("status = %s, want PAID", paid.Status)
	}
}

func TestPayReplaySameTransactionNo(t *testing.T) {
	f := newFixture(t)
	reg, charge := f.newRegistrationCharge(t)

	req := paymentdomain.PayRequest{
		ChargeID:      charge.ID,
		Method:        chargedomain.PaymentMethodCard,
		TransactionNo: strptr("TXN-1001"),
		PaidAmount:    decimal.RequireFromString("15.00"),
		Operator:      operatordomain.System(),
	}
	first, err := f.paymentSvc.Pay(context.Background(), req)
	if err != nil {
		t.Fatalf("first pay: %v", err)
	}
	second, err := f.paymentSvc.Pay(context.Background(), req)
	if err != nil {
		t.Fatalf("replay pay: %v", err)
	}
	if second.Status != chargedomain.StatusPaid || *second.TransactionNo != *first.TransactionNo {
		t.Fatalf("replay returned %+v", second)
	}

	var histories int64
	if err := f.db.Model(&registrationdomain.StatusHistory{}).
		Where("registration_id = ?", reg.ID).Count(&histories).Error; err != nil {
		t.Fatalf("count histories: %v", err)
	}
	if histories != 1 {
		t.Fatalf("history rows = %d after replay, want 1", histories)
	}
}

func TestPayPaidChargeDifferentTransactionNo(t *testing.T) {
	f := newFixture(t)
	_, charge := f.newRegistrationCharge(t)

	req := paymentdomain.PayRequest{
		ChargeID:      charge.ID,
		Method:        chargedomain.PaymentMethodCard,
		TransactionNo: strptr("TXN-2001"),
		PaidAmount:    decimal.RequireFromString("15.00"),
		Operator:      operatordomain.System(),
	}
	if _, err := f.paymentSvc.Pay(context.Background(), req); err != nil {
		t.Fatalf("first pay: %v", err)
	}

	req.TransactionNo = strptr("TXN-2002")
	_, err := f.paymentSvc.Pay(context.Background(), req)
	if !errors.Is(err, chargedomain.ErrAlreadyPaid) {
		t.Fatalf("err = %v, want ErrAlreadyPaid", err)
	}
}

func TestPayDuplicateTransactionNoAcrossCharges(t *testing.T) {
	f := newFixture(t)
	_, first := f.newRegistrationCharge(t)
	_, second := f.newRegistrationCharge(t)

	if _, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:      first.ID,
		Method:        chargedomain.PaymentMethodMobile,
		TransactionNo: strptr("TXN-3001"),
		PaidAmount:    decimal.RequireFromString("15.00"),
		Operator:      operatordomain.System(),
	}); err != nil {
		t.Fatalf("first pay: %v", err)
	}

	_, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:      second.ID,
		Method:        chargedomain.PaymentMethodMobile,
		TransactionNo: strptr("TXN-3001"),
		PaidAmount:    decimal.RequireFromString("15.00"),
		Operator:      operatordomain.System(),
	})
	if !errors.Is(err, chargedomain.ErrDuplicateTransaction) {
		t.Fatalf("err = %v, want ErrDuplicateTransaction", err)
	}

	got, err := f.chargeSvc.GetByID(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("reload second charge: %v", err)
	}
	if got.Status != chargedomain.StatusUnpaid {
		t.Fatalf("second charge = %s after rejected pay, want UNPAID", got.Status)
	}
}

func TestPayPrescriptionChargeFlipsPrescription(t *testing.T) {
	f := newFixture(t)
	rx, charge := f.newPrescriptionCharge(t)

	if _, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:      charge.ID,
		Method:        chargedomain.PaymentMethodCard,
		TransactionNo: strptr("TXN-4001"),
		PaidAmount:    decimal.RequireFromString("42.00"),
		Operator:      operatordomain.System(),
	}); err != nil {
		t.Fatalf("pay: %v", err)
	}

	var got prescriptiondomain.Prescription
	if err := f.db.First(&got, "id = ?", rx.ID).Error; err != nil {
		t.Fatalf("reload prescription: %v", err)
	}
	if got.Status != prescriptiondomain.StatusPaid {
		t.Fatalf("prescription status = %s, want PAID", got.Status)
	}
}

func TestPayPrescriptionMovedUnderneath(t *testing.T) {
	f := newFixture(t)
	rx, charge := f.newPrescriptionCharge(t)

	// The clinical side pulled the order back after charging.
	if err := f.db.Model(&prescriptiondomain.Prescription{}).
		Where("id = ?", rx.ID).
		Update("status", prescriptiondomain.StatusIssued).Error; err != nil {
		t.Fatalf("move prescription: %v", err)
	}

	_, err := f.paymentSvc.Pay(context.Background(), paymentdomain.PayRequest{
		ChargeID:   charge.ID,
		Method:     chargedomain.PaymentMethodCash,
		PaidAmount: decimal.RequireFromString("42.00"),
		Operator:   operatordomain.System(),
	})
	if !errors.Is(err, prescriptiondomain.ErrUnexpectedStatus) {
		t.Fatalf("err = %v, want ErrUnexpectedStatus", err)
	}

	got, err := f.chargeSvc.GetByID(context.Background(), charge.ID)
	if err != nil {
		t.Fatalf("reload charge: %v", err)
	}
	if got.Status != chargedomain.StatusUnpaid {
		t.Fatalf("charge = %s after rollback, want UNPAID", got.Status)
	}
}
