package slug

import (
	"regexp"
	"strings"
	"testing"
)

var validSlug = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestMake(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello, World!", "hello-world"},
		{"Apple's new iPhone 17 Pro", "apples-new-iphone-17-pro"},
		{"Türkiye'de Yapay Zekâ Çağı", "turkiyede-yapay-zeka-cagi"},
		{"İSTANBUL ŞEHİR HATLARI", "istanbul-sehir-hatlari"},
		{"  --Tom & Jerry--  ", "tom-and-jerry"},
		{"Straße über Ærø", "strasse-uber-aero"},
		{"人工智能 AI", "ren-gong-zhi-neng-ai"},
		{"multiple   spaces\tand\nnewlines", "multiple-spaces-and-newlines"},
		{"C++ / Go: 2026 — what’s next?", "c-go-2026-whats-next"},
	}

	for _, tt := range tests {
		got := Make(tt.title)
		if got != tt.want {
			t.Errorf("Make(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestMakeMaxLength(t *testing.T) {
	title := strings.Repeat("word ", 40)
	got := Make(title)
	if len(got) > MaxLen {
		t.Fatalf("len = %d, want <= %d", len(got), MaxLen)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug should not end with a hyphen: %q", got)
	}
	if !strings.HasPrefix(got, "word-word-") {
		t.Errorf("unexpected slug: %q", got)
	}
}

func TestMakeEmptyTitle(t *testing.T) {
	for _, title := range []string{"", "!!!", "🚀🚀"} {
		got := Make(title)
		if !strings.HasPrefix(got, emptyPrefix) {
			t.Errorf("Make(%q) = %q, want %s prefix", title, got, emptyPrefix)
		}
		if got != Make(title) {
			t.Errorf("Make(%q) is not deterministic", title)
		}
	}
	if Make("!!!") == Make("???") {
		t.Error("different empty titles should not share a slug")
	}
}

func TestMakeSameNormalizedTitleCollides(t *testing.T) {
	a := Make("Breaking: Go 1.26 released")
	b := Make("breaking — GO 1.26 RELEASED!!")
	if a != b {
		t.Errorf("normalized titles should collide: %q vs %q", a, b)
	}
}

func TestMakeInvariants(t *testing.T) {
	titles := []string{
		"Hello, World!",
		"Şırnak'ta güneş enerjisi santrali açıldı",
		"東京で新しいAIチップ発表",
		"NASA's Artemis II: crew, timeline & what to expect in 2026",
		strings.Repeat("ÇĞİÖŞÜ ", 30),
		"-",
		"a",
		"100% free!!! (no, really)",
		"\"Quoted\" title with \\backslash\\",
	}

	for _, title := range titles {
		got := Make(title)
		if len(got) > MaxLen {
			t.Errorf("Make(%q) length %d > %d", title, len(got), MaxLen)
		}
		if !validSlug.MatchString(got) {
			t.Errorf("Make(%q) = %q has invalid characters", title, got)
		}
		if got != strings.ToLower(got) {
			t.Errorf("Make(%q) = %q is not lowercase", title, got)
		}
		if again := Make(title); again != got {
			t.Errorf("Make(%q) not deterministic: %q vs %q", title, got, again)
		}
	}
}
