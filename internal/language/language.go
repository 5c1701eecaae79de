package language

import (
	"os"
	"strings"

	xlang "golang.org/x/text/language"
)

// Language is a catalog entry: a translatable language with the user's
// install and favorite flags.
type Language struct {
	Code        string `msgpack:"code"` // ISO 639-1 code (e.g., "en", "es", "zh")
	Name        string `msgpack:"name"` // display name (e.g., "English")
	IsInstalled bool   `msgpack:"installed"`
	IsFavorite  bool   `msgpack:"favorite"`
}

// English is the fallback source language when the environment's language
// is not in the catalog.
const English = "en"

// defaults seeds an empty catalog. All entries start installed and favorite.
var defaults = []Language{
	{Code: "en", Name: "English", IsInstalled: true, IsFavorite: true},
	{Code: "es", Name: "Spanish", IsInstalled: true, IsFavorite: true},
	{Code: "fr", Name: "French", IsInstalled: true, IsFavorite: true},
	{Code: "de", Name: "German", IsInstalled: true, IsFavorite: true},
	{Code: "zh", Name: "Chinese", IsInstalled: true, IsFavorite: true},
	{Code: "ja", Name: "Japanese", IsInstalled: true, IsFavorite: true},
	{Code: "ru", Name: "Russian", IsInstalled: true, IsFavorite: true},
	{Code: "ar", Name: "Arabic", IsInstalled: true, IsFavorite: true},
	{Code: "hi", Name: "Hindi", IsInstalled: true, IsFavorite: true},
	{Code: "pt", Name: "Portuguese", IsInstalled: true, IsFavorite: true},
}

// Defaults returns the seed catalog.
func Defaults() []Language {
	result := make([]Language, len(defaults))
	copy(result, defaults)
	return result
}

// Find returns the first entry in list with the given code.
func Find(list []Language, code string) (Language, bool) {
	for _, l := range list {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// localeEnv lists the variables consulted by Preferred, highest priority first.
var localeEnv = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// Preferred returns the ISO 639-1 code of the environment's language, or ""
// when none is configured. "C" and "POSIX" locales count as unset.
func Preferred() string {
	return preferred(os.Getenv)
}

func preferred(getenv func(string) string) string {
	for _, key := range localeEnv {
		if code := ParseLocale(getenv(key)); code != "" {
			return code
		}
	}
	return ""
}

// ParseLocale extracts the base language code from a POSIX locale string
// such as "es_ES.UTF-8" or "pt_BR@euro".
func ParseLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}

	tag, err := xlang.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return ""
	}
	return base.String()
}
