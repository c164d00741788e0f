package db

import "testing"

func TestTagFilter(t *testing.T) {
	got := TagFilter("store", "a-1", "b c")
	want := `@store:{a\-1 | b\ c}`
	if got != want {
		t.Errorf("TagFilter = %q, want %q", got, want)
	}
}

func TestGeoFilter(t *testing.T) {
	got := GeoFilter("location", -79.38, 43.65, "10")
	want := "@location:[-79.38 43.65 10 km]"
	if got != want {
		t.Errorf("GeoFilter = %q, want %q", got, want)
	}
}

func TestTextTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Joe's", []string{"Joe", "s"}},
		{"Cafe & Bar", []string{"Cafe", "Bar"}},
		{"pizza-bar  24/7", []string{"pizza", "bar", "24", "7"}},
		{"Crème brûlée", []string{"Crème", "brûlée"}},
		{"!!! ---", nil},
		{"", nil},
	}
	for _, tc := range tests {
		got := TextTerms(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("TextTerms(%q) = %q, want %q", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("TextTerms(%q) = %q, want %q", tc.in, got, tc.want)
				break
			}
		}
	}
}

func TestTextFilter_AnyTerm(t *testing.T) {
	got := TextFilter([]string{"name", "description"}, TextTerms("pizza bar"))
	want := `@name|description:(pizza | bar)`
	if got != want {
		t.Errorf("TextFilter = %q, want %q", got, want)
	}
}

func TestTextFilter_Apostrophe(t *testing.T) {
	got := TextFilter([]string{"name"}, TextTerms("Joe's"))
	want := `@name:(Joe | s)`
	if got != want {
		t.Errorf("TextFilter = %q, want %q", got, want)
	}
}

func TestEscapeTag_Backslash(t *testing.T) {
	if got := EscapeTag(`a\b`); got != `a\\b` {
		t.Errorf("EscapeTag = %q", got)
	}
}
