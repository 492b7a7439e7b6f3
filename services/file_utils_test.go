package services

import "testing"

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":       "report.pdf",
		"../../etc/passwd": "passwd",
		"a/b/c.txt":        "c.txt",
		"weird..name.txt":  "weird_name.txt",
		"back\\slash.txt":  "back_slash.txt",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileExtension(t *testing.T) {
	if got := fileExtension("Photo.JPG"); got != "jpg" {
		t.Fatalf("expected jpg, got %q", got)
	}
	if got := fileExtension("noext"); got != "" {
		t.Fatalf("expected empty extension, got %q", got)
	}
}

func TestIsImageFile(t *testing.T) {
	if !isImageFile("cat.png") {
		t.Fatalf("expected png to be an image")
	}
	if isImageFile("notes.txt") {
		t.Fatalf("expected txt not to be an image")
	}
}

func TestGetMimeTypeFallback(t *testing.T) {
	if got := getMimeType(".pdf"); got != "application/pdf" {
		t.Fatalf("unexpected mime: %q", got)
	}
	if got := getMimeType(".xyz"); got != "application/octet-stream" {
		t.Fatalf("expected octet-stream fallback, got %q", got)
	}
}
