// Package language resolves the UI language of the web client. Codes follow
// the locale directory names used by converse.js, e.g. "de" or "pt_BR".
package language

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/angeloszaimis/inverse-config/internal/properties"
)

// KeyLanguage is the property holding the configured UI language.
const KeyLanguage = "inverse.language"

type Language struct {
	Code string
	Name string
}

// English is the fallback for unknown or unset languages.
var English = Language{Code: "en", Name: "English"}

// Supported lists the locales shipped with the web client. The first entry is
// the fallback used by the matcher.
var Supported = []Language{
	English,
	{Code: "af", Name: "Afrikaans"},
	{Code: "ar", Name: "العربية"},
	{Code: "bg", Name: "Български"},
	{Code: "ca", Name: "Català"},
	{Code: "cs", Name: "Čeština"},
	{Code: "de", Name: "Deutsch"},
	{Code: "eo", Name: "Esperanto"},
	{Code: "es", Name: "Español"},
	{Code: "eu", Name: "Euskara"},
	{Code: "fi", Name: "Suomi"},
	{Code: "fr", Name: "Français"},
	{Code: "gl", Name: "Galego"},
	{Code: "he", Name: "עברית"},
	{Code: "hi", Name: "हिन्दी"},
	{Code: "hu", Name: "Magyar"},
	{Code: "id", Name: "Bahasa Indonesia"},
	{Code: "it", Name: "Italiano"},
	{Code: "ja", Name: "日本語"},
	{Code: "nb", Name: "Norsk bokmål"},
	{Code: "nl", Name: "Nederlands"},
	{Code: "oc", Name: "Occitan"},
	{Code: "pl", Name: "Polski"},
	{Code: "pt_BR", Name: "Português (Brasil)"},
	{Code: "ro", Name: "Română"},
	{Code: "ru", Name: "Русский"},
	{Code: "tr", Name: "Türkçe"},
	{Code: "uk", Name: "Українська"},
	{Code: "zh_CN", Name: "简体中文"},
	{Code: "zh_TW", Name: "繁體中文"},
}

var matcher = newMatcher()

func newMatcher() language.Matcher {
	tags := make([]language.Tag, len(Supported))
	for i, l := range Supported {
		tags[i] = language.MustParse(toBCP47(l.Code))
	}
	return language.NewMatcher(tags)
}

func toBCP47(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

// Parse maps a language code in either BCP 47 ("pt-BR") or locale ("pt_BR")
// form to the closest supported language. Anything that does not match falls
// back to English.
func Parse(code string) Language {
	if strings.TrimSpace(code) == "" {
		return English
	}

	tag, err := language.Parse(toBCP47(code))
	if err != nil {
		return English
	}

	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return English
	}
	return Supported[idx]
}

// Resolver returns the language the web client should use.
type Resolver interface {
	Language() Language
}

// StoreResolver reads the language from the settings store on every call.
type StoreResolver struct {
	store    properties.Store
	fallback string
}

func NewStoreResolver(store properties.Store, fallback string) *StoreResolver {
	return &StoreResolver{
		store:    store,
		fallback: fallback,
	}
}

func (r *StoreResolver) Language() Language {
	return Parse(r.store.String(KeyLanguage, r.fallback))
}

// Fixed is a Resolver that always returns the same language.
type Fixed Language

func (f Fixed) Language() Language {
	return Language(f)
}
