// Package translate formats human-facing output for the user's locale.
package translate

import (
	"log/slog"
	"sync"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fallback is used when no system locale can be detected or parsed.
const Fallback = "en-US"

var printer = sync.OnceValue(func() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		slog.Debug("locale detection failed", "error", err)
	}
	return NewPrinter(locales...)
})

// Printer returns the printer for the system locale. Detection runs once.
func Printer() *message.Printer {
	return printer()
}

// NewPrinter returns a printer for the first locale that parses as a BCP 47
// tag. Locales such as "de_DE" are accepted. With none usable it falls back
// to en-US.
func NewPrinter(locales ...string) *message.Printer {
	return message.NewPrinter(Tag(locales...))
}

// Tag picks the language tag NewPrinter would use.
func Tag(locales ...string) language.Tag {
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err == nil && tag != language.Und {
			return tag
		}
	}
	return language.MustParse(Fallback)
}

// From formats an en-US Sprintf format for the system locale.
func From(key message.Reference, args ...any) string {
	return Printer().Sprintf(key, args...)
}
