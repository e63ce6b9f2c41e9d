package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// goldenDir holds golden files relative to the package under test.
const goldenDir = "testdata"

// Golden compares got with testdata/<name>.golden. With GOLDEN_UPDATE set
// the file is rewritten instead.
func Golden(t testing.TB, name, got string) {
	t.Helper()
	path := filepath.Join(goldenDir, name+".golden")

	if os.Getenv("GOLDEN_UPDATE") != "" {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			t.Fatalf("create %s: %v", goldenDir, err)
		}
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			t.Fatalf("update %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v\ngot:\n%s", path, err, got)
	}
	if got == string(want) {
		return
	}
	line, w, g := firstDiff(string(want), got)
	t.Errorf("%s differs at line %d\nwant: %q\ngot:  %q\nfull output:\n%s", path, line, w, g, got)
}

// firstDiff returns the first differing line, 1-based.
func firstDiff(want, got string) (int, string, string) {
	wl := strings.Split(want, "\n")
	gl := strings.Split(got, "\n")
	for i := 0; i < len(wl) || i < len(gl); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g {
			return i + 1, w, g
		}
	}
	return 0, "", ""
}
