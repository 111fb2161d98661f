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

	inventorydomain "github.com/mediflow/billing/internal/inventory/domain"
	"github.com/mediflow/billing/internal/migration"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

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

func newTestService(t *testing.T, db *gorm.DB) inventorydomain.Service {
	t.Helper()
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fixedClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
	})
}

var nextTestID snowflake.ID

func newID() snowflake.ID {
	nextTestID++
	return nextTestID
}

func seedStock(t *testing.T, db *gorm.DB, code string, quantity int64) *inventorydomain.StockItem {
	t.Helper()
	item := &inventorydomain.StockItem{
		ID:           newID(),
		MedicineCode: code,
		MedicineName: "Medicine " + code,
		Quantity:     quantity,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed stock %s: %v", code, err)
	}
	return item
}

func seedPrescription(t *testing.T, db *gorm.DB, lines map[snowflake.ID]int64) snowflake.ID {
	t.Helper()
	prescriptionID := newID()
	record := &prescriptiondomain.Prescription{
		ID:             prescriptionID,
		PrescriptionNo: "RX-" + prescriptionID.String(),
		RegistrationID: newID(),
		Status:         prescriptiondomain.StatusPaid,
		TotalAmount:    decimal.NewFromInt(10),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed prescription: %v", err)
	}
	for stockID, quantity := range lines {
		item := &prescriptiondomain.Item{
			ID:             newID(),
			PrescriptionID: prescriptionID,
			StockItemID:    stockID,
			MedicineName:   "line",
			Quantity:       quantity,
			Amount:         decimal.NewFromInt(5),
		}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
	return prescriptionID
}

func stockQuantity(t *testing.T, db *gorm.DB, id snowflake.ID) (int64, int64) {
	t.Helper()
	var item inventorydomain.StockItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return item.Quantity, item.Version
}

func TestConsumeForPrescription(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	stock := seedStock(t, db, "AMOX-500", 20)
	prescriptionID := seedPrescription(t, db, map[snowflake.ID]int64{stock.ID: 3})

	if err := svc.ConsumeForPrescription(context.Background(), db, prescriptionID); err != nil {
		t.Fatalf("consume: %v", err)
	}

	quantity, version := stockQuantity(t, db, stock.ID)
	if quantity != 17 {
		t.Fatalf("quantity = %d, want 17", quantity)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
}

func TestConsumeInsufficientStock(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	stock := seedStock(t, db, "IBU-200", 2)
	prescriptionID := seedPrescription(t, db, map[snowflake.ID]int64{stock.ID: 5})

	err := svc.ConsumeForPrescription(context.Background(), db, prescriptionID)
	if !errors.Is(err, inventorydomain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	quantity, _ := stockQuantity(t, db, stock.ID)
	if quantity != 2 {
		t.Fatalf("quantity = %d after rejected consume, want 2", quantity)
	}
}

func TestRestoreInventoryOnly(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	stock := seedStock(t, db, "PARA-500", 8)
	prescriptionID := seedPrescription(t, db, map[snowflake.ID]int64{stock.ID: 4})

	if err := svc.RestoreInventoryOnly(context.Background(), db, prescriptionID); err != nil {
		t.Fatalf("restore: %v", err)
	}

	quantity, _ := stockQuantity(t, db, stock.ID)
	if quantity != 12 {
		t.Fatalf("quantity = %d, want 12", quantity)
	}
}

func TestConsumeEmptyPrescription(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	prescriptionID := seedPrescription(t, db, nil)

	err := svc.ConsumeForPrescription(context.Background(), db, prescriptionID)
	if !errors.Is(err, inventorydomain.ErrEmptyPrescription) {
		t.Fatalf("err = %v, want ErrEmptyPrescription", err)
	}
}

func TestConsumeUnknownStockItem(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	prescriptionID := seedPrescription(t, db, map[snowflake.ID]int64{newID(): 1})

	err := svc.ConsumeForPrescription(context.Background(), db, prescriptionID)
	if !errors.Is(err, inventorydomain.ErrStockItemNotFound) {
		t.Fatalf("err = %v, want ErrStockItemNotFound", err)
	}
}
