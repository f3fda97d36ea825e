package urlpattern

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips query", "https://example.com/page?id=123&name=test", "https://example.com/page"},
		{"strips fragment", "https://example.com/page#section", "https://example.com/page"},
		{"keeps path", "https://example.com/a/b/c", "https://example.com/a/b/c"},
		{"keeps port", "http://localhost:3000/admin?x=1", "http://localhost:3000/admin"},
		{"malformed falls back to strip-at-?", "not a url?x=1", "not a url"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantPattern string
		wantDynamic bool
	}{
		{"static path", "https://a.test/products", "https://a.test/products", false},
		{"numeric id", "https://a.test/product/456", "https://a.test/product/*", true},
		{"uuid segment",
			"https://a.test/order/123e4567-e89b-12d3-a456-426614174000",
			"https://a.test/order/*", true},
		{"query marks dynamic", "https://a.test/product?id=123", "https://a.test/product", true},
		{"mixed", "https://a.test/user/42/settings", "https://a.test/user/*/settings", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Analyze(tt.in)
			if p.PatternURL != tt.wantPattern {
				t.Errorf("PatternURL = %q, want %q", p.PatternURL, tt.wantPattern)
			}
			if p.IsDynamic != tt.wantDynamic {
				t.Errorf("IsDynamic = %v, want %v", p.IsDynamic, tt.wantDynamic)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical normalized", "https://a.test/page?x=1", "https://a.test/page?x=2", true},
		{"dynamic ids match", "https://a.test/product/123", "https://a.test/product/456", true},
		{"different static paths", "https://a.test/one", "https://a.test/two", false},
		{"different segment counts", "https://a.test/p/1", "https://a.test/p/1/detail", false},
		{"dynamic vs static", "https://a.test/product/123", "https://a.test/product/all", false},
		{"uuid vs numeric", "https://a.test/o/123e4567-e89b-12d3-a456-426614174000", "https://a.test/o/99", true},
		{"different hosts never match", "https://a.test/product/123", "https://b.test/product/456", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.a, tt.b); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatchSymmetry(t *testing.T) {
	urls := []string{
		"https://a.test/page",
		"https://a.test/page?x=1",
		"https://a.test/product/123",
		"https://a.test/product/456",
		"https://b.test/product/123",
		"not a url",
		"",
	}
	for _, a := range urls {
		for _, b := range urls {
			if Match(a, b) != Match(b, a) {
				t.Errorf("Match not symmetric for (%q, %q)", a, b)
			}
		}
	}
}
