package audit_test

import (
	"testing"
	"time"

	"github.com/comptoirhq/comptoir/internal/app/store/audit"
	"github.com/comptoirhq/comptoir/internal/testutil"
)

func TestRecent_NewestFirstWithLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, target := range []string{"u1", "u2", "u3"} {
		if err := s.Log(ctx, audit.Event{
			EventType: audit.EventUserCreated,
			ActorID:   "admin-1",
			TargetID:  target,
			Success:   true,
		}); err != nil {
			t.Fatalf("Log(%s): %v", target, err)
		}
		// Stored timestamps have millisecond precision; keep them distinct.
		time.Sleep(5 * time.Millisecond)
	}

	out, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].TargetID != "u3" || out[1].TargetID != "u2" {
		t.Errorf("order = [%s %s], want newest first [u3 u2]", out[0].TargetID, out[1].TargetID)
	}
	if out[0].ID.IsZero() || out[0].CreatedAt.IsZero() {
		t.Error("stored event missing id or created_at")
	}
}
