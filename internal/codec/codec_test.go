package codec

import (
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	payloads := []string{
		"<html><body>hello</body></html>",
		"x",
		strings.Repeat("<div class=\"row\">cell</div>", 500),
		"유니코드 텍스트 éè",
	}
	for _, p := range payloads {
		compressed, err := Compress(p)
		if err != nil {
			t.Fatalf("compress: %v", err)
		}
		got, wasCompressed := Decompress(compressed)
		if !wasCompressed {
			t.Error("Decompress: wasCompressed = false for gzipped input")
		}
		if got != p {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(p))
		}
	}
}

func TestCompressShrinksRepetitiveInput(t *testing.T) {
	p := strings.Repeat("<li data-testid=\"item\">row</li>", 1000)
	compressed, err := Compress(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) >= len(p) {
		t.Errorf("compressed %d bytes >= raw %d bytes", len(compressed), len(p))
	}
}

func TestDecompressRawInputDegrades(t *testing.T) {
	raw := "<html><body>not gzipped</body></html>"
	got, wasCompressed := Decompress([]byte(raw))
	if wasCompressed {
		t.Error("wasCompressed = true for raw input")
	}
	if got != raw {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestEncodeDecode(t *testing.T) {
	data := []byte{0x1f, 0x8b, 0x00, 0xff, 0xfe}
	stored := Encode(data)
	got := Decode(stored)
	if string(got) != string(data) {
		t.Errorf("Decode(Encode(x)) != x")
	}

	// Plain HTML that was never encoded comes back as-is.
	plain := "<div id=\"x\"></div>"
	if string(Decode(plain)) != plain {
		t.Errorf("Decode of non-base64 input should pass through")
	}
}

func TestHashStable(t *testing.T) {
	const payload = "<html><body><button id=\"go\">Go</button></body></html>"
	h1 := Hash(payload)
	h2 := Hash(payload)
	if h1 != h2 {
		t.Error("Hash not deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64 hex chars", len(h1))
	}
	if Hash(payload+" ") == h1 {
		t.Error("distinct payloads must not collide trivially")
	}
}

func TestMinify(t *testing.T) {
	in := `<html><head>
		<script>alert(1)</script>
		<style>.x{color:red}</style>
	</head><body>
		<!-- comment -->
		<div   id="main"   data-testid="root">
			hello    world
		</div>
	</body></html>`

	out := Minify(in)

	for _, banned := range []string{"<script", "<style", "<!--", "alert(1)"} {
		if strings.Contains(out, banned) {
			t.Errorf("minified output still contains %q", banned)
		}
	}
	// Attributes survive untouched.
	for _, kept := range []string{`id="main"`, `data-testid="root"`, "hello world"} {
		if !strings.Contains(out, kept) {
			t.Errorf("minified output lost %q", kept)
		}
	}
}

func TestMinifyUnparseableInputPassesThrough(t *testing.T) {
	// html.Parse almost never fails, but Minify must never lose payload.
	in := "<div><span>unclosed"
	out := Minify(in)
	if !strings.Contains(out, "unclosed") {
		t.Errorf("content lost: %q", out)
	}
}
