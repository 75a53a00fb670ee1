package ban

import (
	"fmt"
	"testing"
)

func TestReport_BansAtThreshold(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < AutoBanThreshold-1; i++ {
		if banned := tr.Report("target", fmt.Sprintf("reporter-%d", i)); banned {
			t.Fatalf("report %d should not trigger a ban", i+1)
		}
	}
	if tr.IsBanned("target") {
		t.Fatal("target banned before threshold")
	}

	if banned := tr.Report("target", "reporter-final"); !banned {
		t.Fatal("expected the threshold report to trigger a ban")
	}
	if !tr.IsBanned("target") {
		t.Fatal("expected target to be banned")
	}
	if tr.BanCount() != 1 {
		t.Errorf("expected 1 ban, got %d", tr.BanCount())
	}
}

func TestReport_DeduplicatesByReporter(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 10; i++ {
		tr.Report("target", "same-reporter")
	}

	if got := tr.Count("target"); got != 1 {
		t.Errorf("expected 1 distinct reporter, got %d", got)
	}
	if tr.IsBanned("target") {
		t.Error("repeat reports from one reporter must not ban")
	}
}

func TestReport_AlreadyBannedReturnsFalse(t *testing.T) {
	tr := NewTracker()
	tr.Report("target", "r1")
	tr.Report("target", "r2")
	if !tr.Report("target", "r3") {
		t.Fatal("expected third reporter to trigger the ban")
	}

	if tr.Report("target", "r4") {
		t.Error("reports after the ban must not re-trigger it")
	}
	if got := tr.Count("target"); got != 4 {
		t.Errorf("expected 4 distinct reporters recorded, got %d", got)
	}
}

func TestCount_UnknownTargetIsZero(t *testing.T) {
	tr := NewTracker()
	if got := tr.Count("nobody"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if tr.IsBanned("nobody") {
		t.Error("unknown target must not be banned")
	}
}
