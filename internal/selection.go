package internal

import "sync"

// ModelSelection tracks which council members take part in new rounds.
// At least one model stays selected once a catalog is known.
type ModelSelection struct {
	mu       sync.RWMutex
	prefs    Preferences
	catalog  []Model
	selected []string
}

// NewModelSelection loads the persisted selection. Until Refresh is called
// the persisted ids are used as-is.
func NewModelSelection(prefs Preferences) *ModelSelection {
	s := &ModelSelection{prefs: prefs}
	ids, ok, err := GetStrings(prefs, PrefSelectedModels)
	if err != nil {
		LogWarn("Ignoring stored model selection: %v", err)
	}
	if ok {
		s.selected = dedupeIDs(ids)
	}
	return s
}

// Refresh installs a new catalog, drops selected ids it no longer
// contains and falls back to every model when nothing survives
func (s *ModelSelection) Refresh(catalog []Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog = append([]Model(nil), catalog...)
	known := make(map[string]bool, len(catalog))
	for _, m := range catalog {
		known[m.ID] = true
	}

	kept := make([]string, 0, len(s.selected))
	for _, id := range s.selected {
		if known[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		kept = s.allIDs()
	}
	s.selected = s.inCatalogOrder(kept)
	return s.persist()
}

// Catalog returns the known models
func (s *ModelSelection) Catalog() []Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Model(nil), s.catalog...)
}

// Selected returns the selected ids in catalog order
func (s *ModelSelection) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.selected...)
}

// IsSelected reports whether id is selected
func (s *ModelSelection) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contains(s.selected, id)
}

// Toggle flips one model. Deselecting the last selected model is refused
// and reported by returning false.
func (s *ModelSelection) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.catalog) > 0 && !s.known(id) {
		return false, nil
	}

	if contains(s.selected, id) {
		if len(s.selected) <= 1 {
			return false, nil
		}
		next := make([]string, 0, len(s.selected)-1)
		for _, sid := range s.selected {
			if sid != id {
				next = append(next, sid)
			}
		}
		s.selected = next
	} else {
		s.selected = s.inCatalogOrder(append(s.selected, id))
	}
	return true, s.persist()
}

// ToggleAll selects every model, or when every model is already selected
// collapses the selection to the chairman (the first model if none is
// marked chairman)
func (s *ModelSelection) ToggleAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.catalog) == 0 {
		return nil
	}
	if len(s.selected) == len(s.catalog) {
		s.selected = []string{s.chairmanID()}
	} else {
		s.selected = s.allIDs()
	}
	return s.persist()
}

// Chairman returns the chairman model, or the first model without one
func (s *ModelSelection) Chairman() (Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.catalog) == 0 {
		return Model{}, false
	}
	id := s.chairmanID()
	for _, m := range s.catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

func (s *ModelSelection) chairmanID() string {
	for _, m := range s.catalog {
		if m.IsChairman {
			return m.ID
		}
	}
	return s.catalog[0].ID
}

func (s *ModelSelection) allIDs() []string {
	ids := make([]string, len(s.catalog))
	for i, m := range s.catalog {
		ids[i] = m.ID
	}
	return ids
}

func (s *ModelSelection) known(id string) bool {
	for _, m := range s.catalog {
		if m.ID == id {
			return true
		}
	}
	return false
}

// inCatalogOrder sorts ids by catalog position; unknown ids keep their
// relative order at the end
func (s *ModelSelection) inCatalogOrder(ids []string) []string {
	ids = dedupeIDs(ids)
	if len(s.catalog) == 0 {
		return ids
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, m := range s.catalog {
		if want[m.ID] {
			out = append(out, m.ID)
			delete(want, m.ID)
		}
	}
	for _, id := range ids {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}

func (s *ModelSelection) persist() error {
	return SetStrings(s.prefs, PrefSelectedModels, s.selected)
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
