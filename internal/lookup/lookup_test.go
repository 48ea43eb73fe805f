package lookup

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"testing/quick"
)

func TestSanitize(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"あの悪魔の．．．\n私の手柄を．．．\n", "あの悪魔の．．．私の手柄を．．．"},
		{"line\r\nbreaks and more\u0085", "linebreaks and more"},
		{"keeps spaces\tand tabs", "keeps spaces\tand tabs"},
	}

	for _, tc := range testCases {
		if got := Sanitize(tc.input); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeProperties(t *testing.T) {
	idempotent := func(s string) bool {
		once := Sanitize(s)
		return Sanitize(once) == once
	}
	if err := quick.Check(idempotent, nil); err != nil {
		t.Errorf("Sanitize is not idempotent: %v", err)
	}

	noBreaks := func(s string) bool {
		return !strings.ContainsAny(Sanitize(s+"\n\r"+s), "\n\r\v\f\u0085\u2028\u2029")
	}
	if err := quick.Check(noBreaks, nil); err != nil {
		t.Errorf("Sanitize left a line break: %v", err)
	}
}

func TestDictionaryURL(t *testing.T) {
	got := DictionaryURL("あの悪魔の．．．\n私の手柄を．．．")

	if !strings.HasPrefix(got, "https://jisho.hlorenzi.com/search/") {
		t.Fatalf("DictionaryURL() = %q", got)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if u.Path != "/search/あの悪魔の．．．私の手柄を．．．" {
		t.Errorf("decoded path = %q", u.Path)
	}
}

func TestTranslationURL(t *testing.T) {
	got := TranslationURL("お前は\nもう死んでいる", "ja", "en")

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if u.Host != "www.deepl.com" || u.Path != "/en/translator" {
		t.Errorf("TranslationURL() = %q", got)
	}
	frag, err := url.PathUnescape(u.EscapedFragment())
	if err != nil {
		t.Fatal(err)
	}
	if frag != "ja/en/お前はもう死んでいる" {
		t.Errorf("fragment = %q", frag)
	}
	if strings.ContainsAny(got, "\n ") {
		t.Errorf("URL contains raw whitespace: %q", got)
	}
}

func TestOpen(t *testing.T) {
	var opened string
	original := openURL
	t.Cleanup(func() { openURL = original })
	openURL = func(u string) error { opened = u; return nil }

	if err := Open("https://jisho.hlorenzi.com/search/x"); err != nil {
		t.Fatal(err)
	}
	if opened != "https://jisho.hlorenzi.com/search/x" {
		t.Errorf("opened %q", opened)
	}

	openURL = func(string) error { return errors.New("no display") }
	if err := Open("https://example.com"); err == nil {
		t.Error("Open() error = nil, want failure")
	}
}
