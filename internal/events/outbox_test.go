package events

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
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
	if err := db.AutoMigrate(&BillingEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestOutbox(t *testing.T, db *gorm.DB) *Outbox {
	t.Helper()
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return NewOutbox(db, node)
}

func TestPublishStoresEvent(t *testing.T) {
	db := openTestDB(t)
	outbox := newTestOutbox(t, db)

	err := outbox.Publish(context.Background(), Event{
		Type:      EventChargePaid,
		Payload:   map[string]any{"charge_no": "CHG-1"},
		DedupeKey: "charge.paid:CHG-1",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var row BillingEvent
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.EventType != EventChargePaid {
		t.Fatalf("type = %s, want %s", row.EventType, EventChargePaid)
	}
	if row.Payload["charge_no"] != "CHG-1" {
		t.Fatalf("payload = %v", row.Payload)
	}
}

func TestPublishDeduplicatesByKey(t *testing.T) {
	db := openTestDB(t)
	outbox := newTestOutbox(t, db)

	for i := 0; i < 3; i++ {
		err := outbox.Publish(context.Background(), Event{
			Type:      EventChargePaid,
			Payload:   map[string]any{"attempt": i},
			DedupeKey: "charge.paid:CHG-1",
		})
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&BillingEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("events = %d, want 1", count)
	}
}

func TestPublishWithoutDedupeKeyAlwaysInserts(t *testing.T) {
	db := openTestDB(t)
	outbox := newTestOutbox(t, db)

	for i := 0; i < 2; i++ {
		err := outbox.Publish(context.Background(), Event{
			Type:    EventPrescriptionDispensed,
			Payload: map[string]any{"attempt": i},
		})
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&BillingEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("events = %d, want 2", count)
	}
}

func TestPublishRejectsEmptyType(t *testing.T) {
	db := openTestDB(t)
	outbox := newTestOutbox(t, db)

	if err := outbox.Publish(context.Background(), Event{Type: "  "}); err == nil {
		t.Fatal("publish with empty type succeeded")
	}
}
