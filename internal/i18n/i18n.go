// Package i18n picks a message printer for command line output, so numbers
// in reports are grouped the way the operator's locale expects.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(SupportedLangs)

// MatchLanguage returns the best supported language for a locale or
// Accept-Language style string ("de_DE", "en-US,en;q=0.9").
func MatchLanguage(s string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(strings.ReplaceAll(s, "_", "-"))
	tag, _, _ := matcher.Match(tags...)
	return tag
}

// LocaleFromEnv returns the POSIX locale name from LC_ALL, LC_NUMERIC or
// LANG, without its encoding suffix. "C" and "POSIX" yield "".
func LocaleFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		lang := os.Getenv(key)
		if lang == "" {
			continue
		}
		if i := strings.IndexAny(lang, ".@"); i != -1 {
			lang = lang[:i]
		}
		if lang == "C" || lang == "POSIX" {
			return ""
		}
		return lang
	}
	return ""
}

// NewCLIPrinter returns a printer for the system's locale.
func NewCLIPrinter() *message.Printer {
	lang := LocaleFromEnv()
	if lang == "" {
		return message.NewPrinter(DefaultLang)
	}
	return message.NewPrinter(MatchLanguage(lang))
}
