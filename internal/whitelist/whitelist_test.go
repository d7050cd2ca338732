package whitelist

import "testing"

func TestAllowsEverythingWhenEmpty(t *testing.T) {
	t.Parallel()
	w := New(nil)
	if !w.Allows("/any/project/osfstorage/whatever.txt") {
		t.Error("empty whitelist should allow any path")
	}
}

func TestMatchesGlobPatterns(t *testing.T) {
	t.Parallel()
	w := New([]string{"/proj1/osfstorage/drafts/*"})

	cases := []struct {
		path string
		want bool
	}{
		{"/proj1/osfstorage/drafts/a.txt", true},
		{"/proj1/osfstorage/drafts/nested/a.txt", false}, // * does not cross "/"
		{"/proj1/osfstorage/final.txt", false},
	}
	for _, c := range cases {
		if got := w.Allows(c.path); got != c.want {
			t.Errorf("Allows(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestMultiplePatternsAnyMatch(t *testing.T) {
	t.Parallel()
	w := New([]string{"/proj1/osfstorage/a*", "/proj2/osfstorage/b*"})
	if !w.Allows("/proj2/osfstorage/bnotes.txt") {
		t.Error("second pattern should match")
	}
	if w.Allows("/proj3/osfstorage/anything") {
		t.Error("no pattern should match proj3")
	}
}
