package services

import (
	"testing"

	"spendwise/internal/models"
	"spendwise/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)
	user := testutil.CreateTestUser(t, db)

	svc.Log(user.ID, "CREATE_EXPENSE", "expense", user.ID, "127.0.0.1", map[string]interface{}{"amount": "12.50"})

	var entry models.AuditLog
	testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	if entry.Action != "CREATE_EXPENSE" || entry.Changes != `{"amount":"12.50"}` {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
}

func TestAuditLog_SkipsAndTolerates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)
	user := testutil.CreateTestUser(t, db)

	svc.Log("", "CREATE_CATEGORY", "category", user.ID, "127.0.0.1", nil)
	svc.Log(user.ID, "CUSTOM", "report", "not-a-uuid", "127.0.0.1", nil)

	var entries []models.AuditLog
	testutil.AssertNoError(t, db.Find(&entries).Error)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ResourceID != nil || entries[0].Changes != "" {
		t.Errorf("expected no resource id and no changes, got %+v", entries[0])
	}
}
