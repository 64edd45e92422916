package editor

import (
	"reflect"
	"testing"
)

func TestTabManagerEmptyDefault(t *testing.T) {
	tm := NewTabManager()

	st := tm.TabState("p1")
	if len(st.OpenTabs) != 0 {
		t.Errorf("OpenTabs length = %d, want 0", len(st.OpenTabs))
	}
	if st.ActiveTab != "" {
		t.Errorf("ActiveTab = %q, want empty", st.ActiveTab)
	}
	if st.PreviewTab != "" {
		t.Errorf("PreviewTab = %q, want empty", st.PreviewTab)
	}
}

func TestPreviewOpenAppends(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", false)

	st := tm.TabState("p1")
	if !reflect.DeepEqual(st.OpenTabs, []string{"a"}) {
		t.Errorf("OpenTabs = %v, want [a]", st.OpenTabs)
	}
	if st.ActiveTab != "a" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "a")
	}
	if st.PreviewTab != "a" {
		t.Errorf("PreviewTab = %q, want %q", st.PreviewTab, "a")
	}
}

func TestPreviewReplacedInPlace(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", false)
	tm.OpenFile("p1", "c", true)

	// b is the preview tab at index 1; previewing d must replace it there.
	tm.OpenFile("p1", "d", false)

	st := tm.TabState("p1")
	if !reflect.DeepEqual(st.OpenTabs, []string{"a", "d", "c"}) {
		t.Errorf("OpenTabs = %v, want [a d c]", st.OpenTabs)
	}
	if st.PreviewTab != "d" {
		t.Errorf("PreviewTab = %q, want %q", st.PreviewTab, "d")
	}
	if st.ActiveTab != "d" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "d")
	}
	if st.Contains("b") {
		t.Error("previewed-over tab b should no longer be open")
	}
}

func TestPreviewReplacementKeepsLength(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", false)
	tm.OpenFile("p1", "b", false)

	st := tm.TabState("p1")
	if len(st.OpenTabs) != 1 {
		t.Errorf("OpenTabs length = %d, want 1", len(st.OpenTabs))
	}
	if st.OpenTabs[0] != "b" {
		t.Errorf("OpenTabs[0] = %q, want %q", st.OpenTabs[0], "b")
	}
}

func TestPinnedOpenKeepsPreview(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", false)
	tm.OpenFile("p1", "b", true)

	st := tm.TabState("p1")
	if !reflect.DeepEqual(st.OpenTabs, []string{"a", "b"}) {
		t.Errorf("OpenTabs = %v, want [a b]", st.OpenTabs)
	}
	// a keeps its preview status; b is pinned.
	if st.PreviewTab != "a" {
		t.Errorf("PreviewTab = %q, want %q", st.PreviewTab, "a")
	}
	if st.ActiveTab != "b" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "b")
	}
}

func TestPinningPreviewTab(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", false)

	// Double-click convention: re-open the preview tab pinned.
	tm.OpenFile("p1", "a", true)

	st := tm.TabState("p1")
	if !reflect.DeepEqual(st.OpenTabs, []string{"a"}) {
		t.Errorf("OpenTabs = %v, want [a]", st.OpenTabs)
	}
	if st.PreviewTab != "" {
		t.Errorf("PreviewTab = %q, want empty after pinning", st.PreviewTab)
	}
	if st.ActiveTab != "a" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "a")
	}
}

func TestReopenPinnedLeavesOtherPreview(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", false)
	tm.OpenFile("p1", "b", true)

	// Pinned re-open of b must not clear a's preview status.
	tm.OpenFile("p1", "b", true)

	st := tm.TabState("p1")
	if st.PreviewTab != "a" {
		t.Errorf("PreviewTab = %q, want %q", st.PreviewTab, "a")
	}
}

func TestAtMostOnePreview(t *testing.T) {
	tm := NewTabManager()
	files := []string{"a", "b", "c", "d"}
	for i, f := range files {
		tm.OpenFile("p1", f, i%2 == 0)

		st := tm.TabState("p1")
		if st.PreviewTab != "" && !st.Contains(st.PreviewTab) {
			t.Fatalf("PreviewTab %q not in OpenTabs %v", st.PreviewTab, st.OpenTabs)
		}
	}
}

func TestCloseActiveMiddleTab(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", true)
	tm.OpenFile("p1", "c", true)
	tm.SetActiveTab("p1", "b")

	tm.CloseTab("p1", "b")

	st := tm.TabState("p1")
	if !reflect.DeepEqual(st.OpenTabs, []string{"a", "c"}) {
		t.Errorf("OpenTabs = %v, want [a c]", st.OpenTabs)
	}
	// c slides into b's former index and becomes active.
	if st.ActiveTab != "c" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "c")
	}
}

func TestCloseActiveLastTab(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", true)
	tm.OpenFile("p1", "c", true)

	tm.CloseTab("p1", "c")

	st := tm.TabState("p1")
	if st.ActiveTab != "b" {
		t.Errorf("ActiveTab = %q, want %q (new last tab)", st.ActiveTab, "b")
	}
}

func TestCloseOnlyTab(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)

	tm.CloseTab("p1", "a")

	st := tm.TabState("p1")
	if len(st.OpenTabs) != 0 {
		t.Errorf("OpenTabs = %v, want empty", st.OpenTabs)
	}
	if st.ActiveTab != "" {
		t.Errorf("ActiveTab = %q, want empty", st.ActiveTab)
	}
}

func TestCloseInactiveTabKeepsActive(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", true)
	tm.SetActiveTab("p1", "a")

	tm.CloseTab("p1", "b")

	st := tm.TabState("p1")
	if st.ActiveTab != "a" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "a")
	}
}

func TestClosePreviewClearsPreview(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", false)

	tm.CloseTab("p1", "b")

	st := tm.TabState("p1")
	if st.PreviewTab != "" {
		t.Errorf("PreviewTab = %q, want empty", st.PreviewTab)
	}
}

func TestCloseUnknownTabIsNoop(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)

	tm.CloseTab("p1", "missing")
	tm.CloseTab("p2", "a")

	st := tm.TabState("p1")
	if !reflect.DeepEqual(st.OpenTabs, []string{"a"}) {
		t.Errorf("OpenTabs = %v, want [a]", st.OpenTabs)
	}
}

func TestCloseAllTabs(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", false)
	tm.SetActiveTab("p1", "a")

	tm.CloseAllTabs("p1")

	st := tm.TabState("p1")
	if len(st.OpenTabs) != 0 || st.ActiveTab != "" || st.PreviewTab != "" {
		t.Errorf("state after CloseAllTabs = %+v, want empty default", st)
	}

	// Resetting an unknown project must not panic or create state.
	tm.CloseAllTabs("p9")
}

func TestSetActiveTabUnknownFile(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)

	tm.SetActiveTab("p1", "ghost")

	st := tm.TabState("p1")
	if st.ActiveTab != "a" {
		t.Errorf("ActiveTab = %q, want %q (unknown id rejected)", st.ActiveTab, "a")
	}
}

func TestSetActiveTabKeepsPreview(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", false)
	tm.OpenFile("p1", "b", true)

	tm.SetActiveTab("p1", "a")

	st := tm.TabState("p1")
	if st.ActiveTab != "a" {
		t.Errorf("ActiveTab = %q, want %q", st.ActiveTab, "a")
	}
	if st.PreviewTab != "a" {
		t.Errorf("PreviewTab = %q, want %q (activation must not pin)", st.PreviewTab, "a")
	}
}

func TestProjectsIndependent(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p2", "b", false)

	tm.CloseAllTabs("p1")

	st := tm.TabState("p2")
	if !reflect.DeepEqual(st.OpenTabs, []string{"b"}) {
		t.Errorf("p2 OpenTabs = %v, want [b]", st.OpenTabs)
	}
	if st.PreviewTab != "b" {
		t.Errorf("p2 PreviewTab = %q, want %q", st.PreviewTab, "b")
	}
}

func TestNoDuplicateTabs(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "a", false)

	st := tm.TabState("p1")
	if len(st.OpenTabs) != 1 {
		t.Errorf("OpenTabs = %v, want single entry", st.OpenTabs)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tm := NewTabManager()
	tm.OpenFile("p1", "a", true)
	tm.OpenFile("p1", "b", true)

	st := tm.TabState("p1")
	st.OpenTabs[0] = "mutated"

	fresh := tm.TabState("p1")
	if fresh.OpenTabs[0] != "a" {
		t.Errorf("OpenTabs[0] = %q after snapshot mutation, want %q", fresh.OpenTabs[0], "a")
	}
}
