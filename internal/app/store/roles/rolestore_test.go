package rolestore_test

import (
	"sync"
	"testing"

	rolestore "github.com/comptoirhq/comptoir/internal/app/store/roles"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/comptoirhq/comptoir/internal/testutil"
)

func TestGet_MissingRowIsUnassigned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	role, err := store.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if role != models.RoleUnassigned {
		t.Errorf("role = %q, want unassigned", role)
	}
}

func TestSet_UpsertsSingleRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Set(ctx, "u1", models.RoleCollaborateur); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "u1", models.RoleAdmin); err != nil {
		t.Fatalf("Set again: %v", err)
	}

	role, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("rows = %d, want 1", len(all))
	}
}

func TestHasAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	has, err := store.HasAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAdmin: %v", err)
	}
	if has {
		t.Error("empty collection reports an admin")
	}

	if err := store.Set(ctx, "u1", models.RoleLectureSeule); err != nil {
		t.Fatalf("Set: %v", err)
	}
	has, err = store.HasAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAdmin: %v", err)
	}
	if has {
		t.Error("non-admin row reports an admin")
	}

	if err := store.Set(ctx, "u2", models.RoleAdmin); err != nil {
		t.Fatalf("Set: %v", err)
	}
	has, err = store.HasAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAdmin: %v", err)
	}
	if !has {
		t.Error("admin row not reported")
	}
}

func TestClaimFirstAdmin_IdempotentForWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	won, err := store.ClaimFirstAdmin(ctx, "u1")
	if err != nil {
		t.Fatalf("ClaimFirstAdmin: %v", err)
	}
	if !won {
		t.Fatal("first claim lost")
	}

	// Same caller claiming again still wins; a crash between claiming and
	// writing the role row must not strand the bootstrap.
	won, err = store.ClaimFirstAdmin(ctx, "u1")
	if err != nil {
		t.Fatalf("ClaimFirstAdmin again: %v", err)
	}
	if !won {
		t.Error("winner's repeat claim lost")
	}

	won, err = store.ClaimFirstAdmin(ctx, "u2")
	if err != nil {
		t.Fatalf("ClaimFirstAdmin u2: %v", err)
	}
	if won {
		t.Error("second caller won a settled claim")
	}
}

func TestClaimFirstAdmin_SingleWinnerUnderConcurrency(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	const callers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			won, err := store.ClaimFirstAdmin(ctx, "caller-"+string(rune('a'+n)))
			if err != nil {
				t.Errorf("ClaimFirstAdmin: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestDelete_ReleasesClaimWhenLastAdminRemoved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	won, err := store.ClaimFirstAdmin(ctx, "u1")
	if err != nil || !won {
		t.Fatalf("ClaimFirstAdmin: won=%v err=%v", won, err)
	}
	if err := store.Set(ctx, "u1", models.RoleAdmin); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// With the claim released, a fresh caller can bootstrap again.
	won, err = store.ClaimFirstAdmin(ctx, "u2")
	if err != nil {
		t.Fatalf("ClaimFirstAdmin u2: %v", err)
	}
	if !won {
		t.Error("claim not released after last admin was removed")
	}
}

func TestDelete_KeepsClaimWhileAnotherAdminRemains(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	won, err := store.ClaimFirstAdmin(ctx, "u1")
	if err != nil || !won {
		t.Fatalf("ClaimFirstAdmin: won=%v err=%v", won, err)
	}
	if err := store.Set(ctx, "u1", models.RoleAdmin); err != nil {
		t.Fatalf("Set u1: %v", err)
	}
	if err := store.Set(ctx, "u2", models.RoleAdmin); err != nil {
		t.Fatalf("Set u2: %v", err)
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	won, err = store.ClaimFirstAdmin(ctx, "u3")
	if err != nil {
		t.Fatalf("ClaimFirstAdmin u3: %v", err)
	}
	if won {
		t.Error("claim released while an admin remains")
	}
}

func TestDelete_MissingRowIsNoError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Delete(ctx, "nobody"); err != nil {
		t.Errorf("Delete missing row: %v", err)
	}
}
