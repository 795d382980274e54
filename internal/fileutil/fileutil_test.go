package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "lecture.wav", "lecture.wav"},
		{"path stripped", "../../etc/passwd", "passwd"},
		{"windows separators", `c:\music\talk.wav`, "c__music_talk.wav"},
		{"control chars", "ta\x00lk\n.wav", "talk.wav"},
		{"empty", "", "upload.wav"},
		{"dots only", "..", "upload.wav"},
		{"whitespace", "   ", "upload.wav"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeName(tc.in, "upload.wav"); got != tc.want {
				t.Fatalf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWriteStream(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "dir", "clip.wav")
	written, err := WriteStream(dst, strings.NewReader("audio bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(len("audio bytes")) {
		t.Fatalf("written = %d", written)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "audio bytes" {
		t.Fatalf("content = %q", got)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "sub", "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
