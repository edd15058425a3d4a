package model

// PostListView is the admin list state. The visible subset is derived, never stored.
type PostListView struct {
	Items      []BlogPost
	SearchTerm string
	IsLoading  bool
}

// Visible returns the items whose title matches the search term
func (v PostListView) Visible() []BlogPost {
	if v.SearchTerm == "" {
		return v.Items
	}
	visible := make([]BlogPost, 0, len(v.Items))
	for _, p := range v.Items {
		if p.MatchesTitle(v.SearchTerm) {
			visible = append(visible, p)
		}
	}
	return visible
}

// Find returns the cached post with id
func (v PostListView) Find(id string) (BlogPost, bool) {
	for _, p := range v.Items {
		if p.ID == id {
			return p, true
		}
	}
	return BlogPost{}, false
}
