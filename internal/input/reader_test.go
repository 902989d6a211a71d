package input

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	content := `# staging hosts
http://a.test/

  http://b.test/search?q=1
# trailing comment
http://c.test/
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	urls, err := NewReader().ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile returned error: %v", err)
	}
	want := []string{"http://a.test/", "http://b.test/search?q=1", "http://c.test/"}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %d: %v", len(want), len(urls), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("url %d: got %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestReadURLsFromFile_Missing(t *testing.T) {
	if _, err := NewReader().ReadURLsFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
