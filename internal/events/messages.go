package events

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// MessageKey identifies a localized string.
type MessageKey string

const (
	KeyReleasesHeader  MessageKey = "sync.releases.header"
	KeyReleasesSuccess MessageKey = "sync.releases.success"
	KeyReleasesFailure MessageKey = "sync.releases.failure"
	KeyFavoritesHeader MessageKey = "sync.favorites.header"
	KeyFavoritesFailed MessageKey = "sync.favorites.failure"
)

// Supported locales, the first one being the fallback.
var Supported = []language.Tag{language.Russian, language.English}

var translations = map[MessageKey]map[language.Tag]string{
	KeyReleasesHeader: {
		language.Russian: "Синхронизация релизов",
		language.English: "Release synchronization",
	},
	KeyReleasesSuccess: {
		language.Russian: "Синхронизация релизов успешно выполнена",
		language.English: "Releases synchronized successfully",
	},
	KeyReleasesFailure: {
		language.Russian: "Не удалось выполнить синхронизацию релизов",
		language.English: "Failed to synchronize releases",
	},
	KeyFavoritesHeader: {
		language.Russian: "Синхронизация избранного",
		language.English: "Favorites synchronization",
	},
	KeyFavoritesFailed: {
		language.Russian: "Не удалось выполнить синхронизацию избранного",
		language.English: "Failed to synchronize favorites",
	},
}

var (
	messages = buildCatalog()
	matcher  = language.NewMatcher(Supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Supported[0]))
	for key, byTag := range translations {
		for tag, text := range byTag {
			if err := b.SetString(tag, string(key), text); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Localizer renders [Message] values in one locale.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer picks the supported locale closest to locale (a BCP 47 tag such as "ru" or "en-US").
// Unknown or empty locales fall back to Russian.
func NewLocalizer(locale string) *Localizer {
	tag := Supported[0]
	if locale != "" {
		if requested, err := language.Parse(locale); err == nil {
			_, idx, confidence := matcher.Match(requested)
			if confidence != language.No {
				tag = Supported[idx]
			}
		}
	}
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(messages))}
}

// Tag returns the selected locale.
func (l *Localizer) Tag() language.Tag { return l.tag }

// Text returns the localized string for key.
func (l *Localizer) Text(key MessageKey) string {
	return l.printer.Sprintf(string(key))
}

// Message builds a notification from a header and body key.
func (l *Localizer) Message(header, body MessageKey) Message {
	return Message{Header: l.Text(header), Body: l.Text(body)}
}
