package retrieval

import (
	"strings"
	"testing"

	"github.com/54b3r/orangebot-go/internal/rag"
)

func TestFormatContext_Empty(t *testing.T) {
	t.Parallel()
	if got := FormatContext(nil); got != NoContext {
		t.Errorf("got %q, want sentinel", got)
	}
}

func TestFormatContext_Tags(t *testing.T) {
	t.Parallel()

	docs := []rag.Document{
		{ID: "1", Content: "Go 7250 gives 7250MB for 250EGP", Source: "internet_data.csv", Metadata: map[string]string{"section": "Mobile Internet"}},
		{ID: "2", Content: "Gift: nan"},
	}
	got := FormatContext(docs)
	want := "Source: internet_data.csv | Section: Mobile Internet\nGo 7250 gives 7250 MB for 250 EGP\n" +
		"\n" +
		"Source: Unknown | Section: General\nGift: N/A\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestCleanContent(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"500MB", "500 MB"},
		{"27.5EGP", "27.5 EGP"},
		{"500 MB", "500 MB"},
		{"nan", "N/A"},
		{"financial nanny", "financial nanny"},
		{"MB EGP", "MB EGP"},
	}
	for _, tt := range tests {
		if got := CleanContent(tt.in); got != tt.want {
			t.Errorf("CleanContent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSources(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{{Source: "a"}, {Source: ""}, {Source: "a"}, {Source: "b"}}
	if got := strings.Join(Sources(docs, 3), ";"); got != "a" {
		t.Errorf("Sources(3) = %q, want a", got)
	}
	if got := strings.Join(Sources(docs, 10), ";"); got != "a;b" {
		t.Errorf("Sources(10) = %q, want a;b", got)
	}
}
