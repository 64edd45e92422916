package editor

import "sync"

// TabState is a snapshot of one project's open editor tabs.
// OpenTabs is in display order; ActiveTab and PreviewTab are file ids
// or "" when unset. A preview tab is the single-click, non-pinned tab
// that the next previewed file replaces in place.
type TabState struct {
	OpenTabs   []string `json:"openTabs"`
	ActiveTab  string   `json:"activeTab"`
	PreviewTab string   `json:"previewTab"`
}

// Contains reports whether the given file id is an open tab.
func (s TabState) Contains(file string) bool {
	for _, id := range s.OpenTabs {
		if id == file {
			return true
		}
	}
	return false
}

// TabManager tracks open tabs, the active tab, and the preview tab for
// each project independently. It is pure data management with no UI
// dependency. Reads return copies, so multiple UI surfaces (tab bar,
// breadcrumbs, content pane) can observe the same snapshot concurrently;
// writes are serialized by an internal lock.
type TabManager struct {
	mu       sync.RWMutex
	projects map[string]*TabState
}

// NewTabManager creates a TabManager with no project state. A project's
// state is created lazily on first write and defaults to empty.
func NewTabManager() *TabManager {
	return &TabManager{
		projects: make(map[string]*TabState),
	}
}

// TabState returns a snapshot of the project's tab state. Unknown
// projects yield the empty default rather than an error.
func (tm *TabManager) TabState(project string) TabState {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	st, ok := tm.projects[project]
	if !ok {
		return TabState{}
	}
	return snapshot(st)
}

func snapshot(st *TabState) TabState {
	return TabState{
		OpenTabs:   append([]string(nil), st.OpenTabs...),
		ActiveTab:  st.ActiveTab,
		PreviewTab: st.PreviewTab,
	}
}

func (tm *TabManager) state(project string) *TabState {
	st, ok := tm.projects[project]
	if !ok {
		st = &TabState{}
		tm.projects[project] = st
	}
	return st
}

// OpenFile opens file in the project's tab bar and makes it active.
//
// A not-yet-open file opened with pinned=false is a preview open: it
// replaces the existing preview tab in place (keeping its slot in the
// tab bar) or is appended when no preview exists, and becomes the new
// preview tab. A not-yet-open file opened with pinned=true is appended
// and leaves any existing preview tab alone. Re-opening an open file
// just activates it; re-opening the preview tab with pinned=true pins
// it (clears preview status) without moving it. Returns the resulting
// snapshot.
func (tm *TabManager) OpenFile(project, file string, pinned bool) TabState {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	st := tm.state(project)
	if file == "" {
		return snapshot(st)
	}

	if idx := indexOf(st.OpenTabs, file); idx >= 0 {
		st.ActiveTab = file
		if pinned && st.PreviewTab == file {
			st.PreviewTab = ""
		}
		return snapshot(st)
	}

	if pinned {
		st.OpenTabs = append(st.OpenTabs, file)
		st.ActiveTab = file
		return snapshot(st)
	}

	// Preview open: reuse the current preview tab's slot so the tab bar
	// ordering stays stable, or append when there is no preview yet.
	if st.PreviewTab != "" {
		if idx := indexOf(st.OpenTabs, st.PreviewTab); idx >= 0 {
			st.OpenTabs[idx] = file
		} else {
			st.OpenTabs = append(st.OpenTabs, file)
		}
	} else {
		st.OpenTabs = append(st.OpenTabs, file)
	}
	st.ActiveTab = file
	st.PreviewTab = file
	return snapshot(st)
}

// CloseTab removes file from the project's tab bar. Closing a file that
// is not open is a no-op. When the active tab is closed, the tab that
// slides into its former index becomes active; if the closed tab was
// last, the new last tab becomes active; if no tabs remain, there is no
// active tab.
func (tm *TabManager) CloseTab(project, file string) TabState {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	st, ok := tm.projects[project]
	if !ok {
		return TabState{}
	}
	idx := indexOf(st.OpenTabs, file)
	if idx < 0 {
		return snapshot(st)
	}

	st.OpenTabs = append(st.OpenTabs[:idx], st.OpenTabs[idx+1:]...)
	if st.PreviewTab == file {
		st.PreviewTab = ""
	}
	if st.ActiveTab == file {
		switch {
		case len(st.OpenTabs) == 0:
			st.ActiveTab = ""
		case idx < len(st.OpenTabs):
			st.ActiveTab = st.OpenTabs[idx]
		default:
			st.ActiveTab = st.OpenTabs[len(st.OpenTabs)-1]
		}
	}
	return snapshot(st)
}

// CloseAllTabs resets the project's tab state to the empty default.
func (tm *TabManager) CloseAllTabs(project string) TabState {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, ok := tm.projects[project]; ok {
		tm.projects[project] = &TabState{}
	}
	return TabState{}
}

// SetActiveTab activates an already-open tab without touching its
// pin/preview status. Activating a file that is not open is a no-op;
// silently accepting unknown ids would leave the active reference
// dangling.
func (tm *TabManager) SetActiveTab(project, file string) TabState {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	st, ok := tm.projects[project]
	if !ok {
		return TabState{}
	}
	if indexOf(st.OpenTabs, file) >= 0 {
		st.ActiveTab = file
	}
	return snapshot(st)
}

func indexOf(tabs []string, file string) int {
	for i, id := range tabs {
		if id == file {
			return i
		}
	}
	return -1
}
