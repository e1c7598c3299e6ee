package location

import (
	"math"
	"testing"
	"time"

	"github.com/vthunder/cogmem/internal/store"
	"github.com/vthunder/cogmem/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, DefaultDecayConfig())
}

func TestFamiliarity_CurveValues(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0.0909090909},
		{10, 0.5},
		{100, 0.90909090909},
	}
	for _, c := range cases {
		got := Familiarity(c.n)
		if math.Abs(got-c.want) > 1e-6 {
			t.Errorf("Familiarity(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestFamiliarity_MonotonicallyIncreasing(t *testing.T) {
	prev := Familiarity(0)
	for n := 1; n <= 50; n++ {
		cur := Familiarity(n)
		if cur <= prev {
			t.Fatalf("familiarity not monotonic at n=%d: prev=%v cur=%v", n, prev, cur)
		}
		prev = cur
	}
}

func TestRecord_CreatesLocationOnFirstAccess(t *testing.T) {
	m := newTestManager(t)
	loc, err := m.Record("proj", "/repo/main.go", "entry point", true, types.ActivityUnknown, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if loc.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", loc.AccessCount)
	}
	if loc.Familiarity != Familiarity(1) {
		t.Errorf("Familiarity = %v, want %v", loc.Familiarity, Familiarity(1))
	}
	if loc.DirectAccessCount != 1 {
		t.Errorf("DirectAccessCount = %d, want 1", loc.DirectAccessCount)
	}
}

func TestRecord_AccumulatesOnRepeatedAccess(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < 5; i++ {
		if _, err := m.Record("proj", "/repo/main.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
			t.Fatal(err)
		}
	}
	loc, err := m.Get(mustLocationID(t, m, "proj", "/repo/main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.AccessCount != 5 {
		t.Errorf("AccessCount = %d, want 5", loc.AccessCount)
	}
}

func TestRecord_EverWellKnownSticksAfterThresholdCrossed(t *testing.T) {
	m := newTestManager(t)
	var id string
	for i := 0; i < 40; i++ {
		loc, err := m.Record("proj", "/repo/hot.go", "", true, types.ActivityUnknown, "", "", "")
		if err != nil {
			t.Fatal(err)
		}
		id = loc.ID
	}
	loc, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Familiarity < m.decay.StickyThreshold {
		t.Fatalf("test setup: expected familiarity past the sticky threshold, got %v", loc.Familiarity)
	}
	if !loc.EverWellKnown {
		t.Error("EverWellKnown should be set once familiarity crosses the sticky threshold")
	}
}

func TestDecay_IdempotentWithoutIntermediateAccess(t *testing.T) {
	m := newTestManager(t)
	loc, err := m.Record("proj", "/repo/old.go", "", true, types.ActivityUnknown, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	// force staleness
	loc.LastAccessed = time.Now().Add(-60 * 24 * time.Hour)
	if err := m.db.UpdateLocation(loc); err != nil {
		t.Fatal(err)
	}

	n1, err := m.Decay()
	if err != nil {
		t.Fatal(err)
	}
	if n1 != 1 {
		t.Fatalf("expected 1 location decayed, got %d", n1)
	}

	n2, err := m.Decay()
	if err != nil {
		t.Fatal(err)
	}
	if n2 != 0 {
		t.Errorf("second decay pass with no access in between should change nothing, got %d", n2)
	}
}

func TestReinforceCoAccess_TimeWindowAloneReinforcesWithoutSharedTask(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Record("proj", "/b.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
		t.Fatal(err)
	}
	loc, err := m.Record("proj", "/a.go", "", true, types.ActivityUnknown, "", "", "build")
	if err != nil {
		t.Fatal(err)
	}

	assoc, err := m.Associated("proj", loc.Path)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, a := range assoc {
		if a.Location.Path == "/b.go" {
			found = true
			if a.Strength != 0.10 {
				t.Errorf("strength = %v, want 0.10 (same activity, no shared task)", a.Strength)
			}
		}
	}
	if !found {
		t.Error("a recently accessed location should be reinforced as co-accessed even without a shared task")
	}
}

func TestDecay_SubStickyPeakFloorsAtPlainFloorNotWellKnownFloor(t *testing.T) {
	m := newTestManager(t)
	var id string
	// 30 accesses -> familiarity 0.75: past wellKnownThreshold (0.7) but
	// short of the sticky threshold (0.8) that should gate the higher floor.
	for i := 0; i < 30; i++ {
		loc, err := m.Record("proj", "/repo/warm.go", "", true, types.ActivityUnknown, "", "", "")
		if err != nil {
			t.Fatal(err)
		}
		id = loc.ID
	}
	loc, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if loc.EverWellKnown {
		t.Fatalf("test setup: familiarity %v should be below the sticky threshold", loc.Familiarity)
	}
	loc.LastAccessed = time.Now().Add(-60 * 24 * time.Hour)
	if err := m.db.UpdateLocation(loc); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		if _, err := m.Decay(); err != nil {
			t.Fatal(err)
		}
		loc, err = m.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		loc.LastAccessed = time.Now().Add(-60 * 24 * time.Hour)
		if err := m.db.UpdateLocation(loc); err != nil {
			t.Fatal(err)
		}
	}

	loc, err = m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Familiarity != m.decay.Floor {
		t.Errorf("familiarity settled at %v, want the plain floor %v (not the well-known floor %v)", loc.Familiarity, m.decay.Floor, m.decay.WellKnownFloor)
	}
}

func TestDecay_SkipsPinnedLocations(t *testing.T) {
	m := newTestManager(t)
	loc, err := m.Record("proj", "/repo/pinned.go", "", true, types.ActivityUnknown, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Pin(loc.ID); err != nil {
		t.Fatal(err)
	}
	loc, err = m.Get(loc.ID)
	if err != nil {
		t.Fatal(err)
	}
	loc.LastAccessed = time.Now().Add(-60 * 24 * time.Hour)
	if err := m.db.UpdateLocation(loc); err != nil {
		t.Fatal(err)
	}

	n, err := m.Decay()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pinned locations must be excluded from decay, got %d changed", n)
	}
}

func TestOrphaned_RequiresWellKnownAndStale(t *testing.T) {
	m := newTestManager(t)
	loc, err := m.Record("proj", "/repo/rare.go", "", true, types.ActivityUnknown, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	// low familiarity, stale: should not be orphaned (never well known)
	loc.LastAccessed = time.Now().Add(-90 * 24 * time.Hour)
	if err := m.db.UpdateLocation(loc); err != nil {
		t.Fatal(err)
	}
	orphans, err := m.Orphaned("proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Errorf("low-familiarity stale location should not be orphaned, got %d", len(orphans))
	}

	loc.Familiarity = 0.8
	if err := m.db.UpdateLocation(loc); err != nil {
		t.Fatal(err)
	}
	orphans, err = m.Orphaned("proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 {
		t.Errorf("well-known stale location should be orphaned, got %d", len(orphans))
	}
}

func TestMerge_NeitherPathExists(t *testing.T) {
	m := newTestManager(t)
	loc, err := m.Merge("proj", "/old.go", "/new.go")
	if err != nil {
		t.Fatal(err)
	}
	if loc != nil {
		t.Errorf("expected nil when neither path is known, got %+v", loc)
	}
}

func TestMerge_OnlyOldExistsRenames(t *testing.T) {
	m := newTestManager(t)
	orig, err := m.Record("proj", "/old.go", "", true, types.ActivityUnknown, "", "", "")
	if err != nil {
		t.Fatal(err)
	}

	renamed, err := m.Merge("proj", "/old.go", "/new.go")
	if err != nil {
		t.Fatal(err)
	}
	if renamed == nil || renamed.ID != orig.ID {
		t.Fatalf("expected the old location renamed in place, got %+v", renamed)
	}
	if renamed.Path != "/new.go" {
		t.Errorf("Path = %q, want /new.go", renamed.Path)
	}
}

func TestMerge_OnlyNewExistsReturnsNew(t *testing.T) {
	m := newTestManager(t)
	newLoc, err := m.Record("proj", "/new.go", "", true, types.ActivityUnknown, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Merge("proj", "/old.go", "/new.go")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != newLoc.ID {
		t.Fatalf("expected existing new location returned, got %+v", got)
	}
}

func TestMerge_BothExistCombinesCounters(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < 3; i++ {
		if _, err := m.Record("proj", "/old.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := m.Record("proj", "/new.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
			t.Fatal(err)
		}
	}

	merged, err := m.Merge("proj", "/old.go", "/new.go")
	if err != nil {
		t.Fatal(err)
	}
	if merged.AccessCount != 5 {
		t.Errorf("AccessCount = %d, want 5", merged.AccessCount)
	}

	if _, err := m.db.GetLocationByPath("/old.go", "proj"); err == nil {
		t.Error("old location should be deleted after merge")
	}
}

func TestMerge_BothExistUnionsAssociations(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Record("proj", "/old.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Record("proj", "/new.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Record("proj", "/sibling.go", "", true, types.ActivityUnknown, "", "", ""); err != nil {
		t.Fatal(err)
	}
	oldID := mustLocationID(t, m, "proj", "/old.go")
	siblingID := mustLocationID(t, m, "proj", "/sibling.go")
	if err := m.db.AssociateLocations(oldID, siblingID, 0.2); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Merge("proj", "/old.go", "/new.go"); err != nil {
		t.Fatal(err)
	}

	assoc, err := m.Associated("proj", "/sibling.go")
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, a := range assoc {
		if a.Location.Path == "/new.go" {
			found = true
		}
	}
	if !found {
		t.Error("association with the old location should be retargeted to the surviving location, not lost")
	}
}

func mustLocationID(t *testing.T, m *Manager, projectID, path string) string {
	t.Helper()
	locs, err := m.All(projectID)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range locs {
		if l.Path == path {
			return l.ID
		}
	}
	t.Fatalf("no location found for path %s", path)
	return ""
}
