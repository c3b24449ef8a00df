package object

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCleanKey(t *testing.T) {
	ok := map[string]string{
		"reports/rec-1.json":  "reports/rec-1.json",
		"a//b/./c.txt":        "a/b/c.txt",
		`user\brief.pdf`:      "user/brief.pdf",
		"a/../reports/x.json": "reports/x.json",
	}
	for in, want := range ok {
		got, err := CleanKey(in)
		if err != nil || got != want {
			t.Errorf("CleanKey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "  ", "/etc/passwd", "..", "../x", "a/../../x", "."} {
		if _, err := CleanKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("CleanKey(%q) expected ErrInvalidKey, got %v", bad, err)
		}
	}
}

func TestUploadKey(t *testing.T) {
	a, err := UploadKey("guest:g1", "my brief.docx")
	if err != nil {
		t.Fatalf("UploadKey: %v", err)
	}
	b, _ := UploadKey("guest:g1", "my brief.docx")
	if a == b {
		t.Fatalf("keys should be unique: %s", a)
	}
	dirA, _, _ := strings.Cut(a, "/")
	dirB, _, _ := strings.Cut(b, "/")
	if dirA != dirB || strings.Contains(a, "guest:g1") || !strings.HasSuffix(a, "_my brief.docx") {
		t.Fatalf("unexpected keys: %s %s", a, b)
	}
	if _, err := UploadKey("u", "../x"); err == nil {
		t.Fatalf("expected invalid file name error")
	}
}

func TestSniffReplaysStream(t *testing.T) {
	body := "%PDF-1.4 " + strings.Repeat("x", 1000)
	mime, r, err := Sniff(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("unexpected mime: %s", mime)
	}
	got, _ := io.ReadAll(r)
	if string(got) != body {
		t.Fatalf("stream not replayed: %d bytes", len(got))
	}
}
