// Package lookup turns recognized text into dictionary and translation links.
package lookup

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/browser"

	"github.com/Goluxas/jp-image-to-dict/internal/logger"
)

const (
	dictionarySearchURL = "https://jisho.hlorenzi.com/search/%s"
	translatorURL       = "https://www.deepl.com/en/translator#%s/%s/%s"
)

// Sanitize drops line breaks so text can sit on one line of a URL.
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
			return -1
		}
		return r
	}, text)
}

// DictionaryURL links to a Lorenzi's Jisho search for text.
func DictionaryURL(text string) string {
	return fmt.Sprintf(dictionarySearchURL, url.PathEscape(Sanitize(text)))
}

// TranslationURL links to DeepL translating text from one language to another,
// e.g. TranslationURL(text, "ja", "en").
func TranslationURL(text, from, to string) string {
	return fmt.Sprintf(translatorURL, from, to, url.PathEscape(Sanitize(text)))
}

var openURL = browser.OpenURL

// Open shows link in the default browser.
func Open(link string) error {
	logger.DebugLog("[lookup]: opening %s", link)
	if err := openURL(link); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	return nil
}
