package validation

import (
	"strings"
	"testing"
	"testing/quick"
	"unicode/utf8"
)

func TestSanitizeFileNameIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"...",
		"photo.jpg",
		"../../etc/passwd",
		`..\..\windows\system32`,
		"CON",
		"con.txt",
		"_CON",
		"a<b>c:d\"e|f?g*h.png",
		"name\x00with\x1fcontrols.txt",
		". leading and trailing .",
		"....hidden....",
		strings.Repeat("a", 300) + ".jpeg",
		strings.Repeat("é", 200),
		strings.Repeat("x", 254) + " .",
		"\xff\xfebroken.txt",
	}

	for _, in := range inputs {
		once := SanitizeFileName(in)
		twice := SanitizeFileName(once)
		if once != twice {
			t.Fatalf("sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
		if once == "" {
			t.Fatalf("sanitize returned empty string for %q", in)
		}
		if len(once) > MaxFileNameBytes {
			t.Fatalf("sanitize returned %d bytes for %q", len(once), in)
		}
		if !utf8.ValidString(once) {
			t.Fatalf("sanitize returned invalid utf-8 for %q", in)
		}
	}
}

func TestSanitizeFileNameProperty(t *testing.T) {
	property := func(s string) bool {
		once := SanitizeFileName(s)
		return once != "" && SanitizeFileName(once) == once
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 2000}); err != nil {
		t.Fatalf("property failed: %v", err)
	}
}

func TestSanitizeFileNameExamples(t *testing.T) {
	cases := map[string]string{
		"":                 UnnamedFile,
		"...":              UnnamedFile,
		"report.pdf":       "report.pdf",
		"../../etc/passwd": "_._etc_passwd",
		"NUL":              "_NUL",
		"lpt1.log":         "_lpt1.log",
		"bad\x07name.txt":  "badname.txt",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("b", 400) + ".webp")
	if len(got) != MaxFileNameBytes {
		t.Fatalf("expected %d bytes, got %d", MaxFileNameBytes, len(got))
	}
	if !strings.HasSuffix(got, ".webp") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestContainsPathTraversal(t *testing.T) {
	traversal := []string{
		"../secret",
		`..\secret`,
		"a/b/../../c",
		`a\b\..\..\c`,
		"..",
		"folder/..",
		"%2e%2e/secret",
		"..%2fsecret",
		"x/y/z/../../../../root",
	}
	for _, name := range traversal {
		if !ContainsPathTraversal(name) {
			t.Fatalf("expected traversal detected in %q", name)
		}
	}

	clean := []string{"folder/file.jpg", "a/b/c.png", "file..name", "...", "v1.2.3.tar.gz"}
	for _, name := range clean {
		if ContainsPathTraversal(name) {
			t.Fatalf("unexpected traversal in %q", name)
		}
	}
}

func TestValidateFileNameRejectsTraversalAtAnyDepth(t *testing.T) {
	for depth := 1; depth <= 6; depth++ {
		for _, sep := range []string{"../", `..\`} {
			name := strings.Repeat("dir/", depth) + strings.Repeat(sep, depth) + "file.txt"
			if res := ValidateFileName(name); res.Valid {
				t.Fatalf("expected %q to be invalid", name)
			}
		}
	}

	if res := ValidateFileName("folder/file.jpg"); !res.Valid {
		t.Fatalf("expected nested path to be valid, got %v", res.Errors)
	}
}

func TestValidateFileName(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"holiday.jpg", true},
		{"", false},
		{"   ", false},
		{"CON", false},
		{"com1.txt", false},
		{"Lpt9", false},
		{"console.txt", true},
		{"tab\tname.txt", false},
		{strings.Repeat("n", 256), false},
	}

	for _, tc := range cases {
		res := ValidateFileName(tc.name)
		if res.Valid != tc.valid {
			t.Fatalf("ValidateFileName(%q).Valid = %v, want %v (errors %v)", tc.name, res.Valid, tc.valid, res.Errors)
		}
		if res.SanitizedName == "" {
			t.Fatalf("ValidateFileName(%q) returned empty sanitized name", tc.name)
		}
		if !res.Valid && len(res.Errors) == 0 {
			t.Fatalf("ValidateFileName(%q) invalid without errors", tc.name)
		}
	}
}
