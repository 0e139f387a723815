package models

import "testing"

func TestNormalizeSpace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  hello  world  ", "hello world"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"already clean", "already clean"},
	}

	for _, tt := range tests {
		if got := NormalizeSpace(tt.in); got != tt.want {
			t.Errorf("NormalizeSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "sorts query params",
			in:   "http://e.com/a?b=2&a=1",
			want: "http://e.com/a?a=1&b=2",
		},
		{
			name: "strips fragment",
			in:   "http://e.com/a?a=1#section",
			want: "http://e.com/a?a=1",
		},
		{
			name: "lowercases scheme and host",
			in:   "HTTP://Example.COM/Path",
			want: "http://example.com/Path",
		},
		{
			name: "preserves blank values",
			in:   "http://e.com/a?flag=&x=1",
			want: "http://e.com/a?flag=&x=1",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalizeURL(tt.in); got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFingerprint_Stability(t *testing.T) {
	base := Tender{
		SourcePortal: "austender",
		SourceID:     "ATM-1",
		Title:        "Managed IT Services",
		Buyer:        "Example Agency",
		Link:         "https://e.com/t?a=1&b=2",
	}

	variants := []Tender{
		{SourcePortal: "austender", SourceID: "ATM-1", Title: "Managed  IT\tServices",
			Buyer: "Example Agency", Link: "https://e.com/t?b=2&a=1"},
		{SourcePortal: "austender", SourceID: "ATM-1", Title: " Managed IT Services ",
			Buyer: "Example Agency", Link: "https://e.com/t?a=1&b=2#details"},
	}

	want := Fingerprint(base)
	for i, v := range variants {
		if got := Fingerprint(v); got != want {
			t.Errorf("variant %d: fingerprint %q != base %q", i, got, want)
		}
	}
}

func TestFingerprint_TitleSensitivity(t *testing.T) {
	a := Tender{SourcePortal: "x", SourceID: "1", Title: "Foo", Buyer: "B", Link: "http://e.com"}
	b := a
	b.Title = "Bar"
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("fingerprints should differ when title differs")
	}
}

func TestFingerprint_MissingFieldsAreEmpty(t *testing.T) {
	// Missing values hash as empty strings, not a null marker.
	a := Fingerprint(Tender{SourcePortal: "x"})
	b := Fingerprint(Tender{SourcePortal: "x", Title: ""})
	if a != b {
		t.Error("zero-value and empty-string title should hash identically")
	}
}
