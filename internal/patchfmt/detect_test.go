package patchfmt

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "input")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDetectDefaultsToMbox(t *testing.T) {
	cases := [][]string{
		nil,
		{"-"},
		{"-", "extra"},
	}
	for _, paths := range cases {
		got, err := Detect(paths)
		if err != nil {
			t.Fatalf("Detect(%v): unexpected error: %v", paths, err)
		}
		if got != Mbox {
			t.Errorf("Detect(%v) = %v, want Mbox", paths, got)
		}
	}
}

func TestDetectDirectoryIsMbox(t *testing.T) {
	dir := t.TempDir()
	got, err := Detect([]string{dir})
	if err != nil {
		t.Fatalf("Detect(dir): unexpected error: %v", err)
	}
	if got != Mbox {
		t.Errorf("Detect(dir) = %v, want Mbox", got)
	}
}

func TestDetectFromLine(t *testing.T) {
	p := writeTemp(t, "From mboxrd@z Thu Jan  1 00:00:00 1970\nSubject: hi\n\nbody\n")
	got, err := Detect([]string{p})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got != Mbox {
		t.Errorf("Detect(From line) = %v, want Mbox", got)
	}
}

func TestDetectEmailLikeHeaders(t *testing.T) {
	p := writeTemp(t, "From: A <a@x>\nSubject: hello\nDate: today\n\nbody\n")
	got, err := Detect([]string{p})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got != Mbox {
		t.Errorf("Detect(email headers) = %v, want Mbox", got)
	}
}

func TestDetectUnknown(t *testing.T) {
	p := writeTemp(t, "just some text\nmore text\neven more\n")
	got, err := Detect([]string{p})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got != Unknown {
		t.Errorf("Detect(plain text) = %v, want Unknown", got)
	}
}

func TestLooksLikeHeader(t *testing.T) {
	cases := map[string]bool{
		"From: a@b":       true,
		"X-Foo: bar":      true,
		"Subject:x":       true,
		"no colon here":   false,
		": leading-colon": false,
		"bad char=: x":    false,
	}
	for line, want := range cases {
		if got := looksLikeHeader(line); got != want {
			t.Errorf("looksLikeHeader(%q) = %v, want %v", line, got, want)
		}
	}
}
