package language

import (
	"sort"
	"strings"
)

// Language represents a language supported by the translation models.
type Language struct {
	Code string
	Name string
}

// Languages maps CLI codes to the 23 languages covered by the Aya Expanse
// model family.
var Languages = map[string]Language{
	"ar":      {Code: "ar", Name: "Arabic"},
	"zh":      {Code: "zh-Hans", Name: "Chinese (Simplified)"}, // Default to Simplified
	"zh-Hans": {Code: "zh-Hans", Name: "Chinese (Simplified)"},
	"zh-Hant": {Code: "zh-Hant", Name: "Chinese (Traditional)"},
	"cs":      {Code: "cs", Name: "Czech"},
	"nl":      {Code: "nl", Name: "Dutch"},
	"en":      {Code: "en", Name: "English"},
	"fr":      {Code: "fr", Name: "French"},
	"de":      {Code: "de", Name: "German"},
	"el":      {Code: "el", Name: "Greek"},
	"he":      {Code: "he", Name: "Hebrew"},
	"hi":      {Code: "hi", Name: "Hindi"},
	"id":      {Code: "id", Name: "Indonesian"},
	"it":      {Code: "it", Name: "Italian"},
	"ja":      {Code: "ja", Name: "Japanese"},
	"ko":      {Code: "ko", Name: "Korean"},
	"fa":      {Code: "fa", Name: "Persian"},
	"pl":      {Code: "pl", Name: "Polish"},
	"pt":      {Code: "pt", Name: "Portuguese"},
	"ro":      {Code: "ro", Name: "Romanian"},
	"ru":      {Code: "ru", Name: "Russian"},
	"es":      {Code: "es", Name: "Spanish"},
	"tr":      {Code: "tr", Name: "Turkish"},
	"uk":      {Code: "uk", Name: "Ukrainian"},
	"vi":      {Code: "vi", Name: "Vietnamese"},
}

// GetLanguage returns the language for a code, or false if not supported.
func GetLanguage(code string) (Language, bool) {
	lang, ok := Languages[code]
	return lang, ok
}

// Resolve accepts either a code ("fr") or an English name ("French").
func Resolve(input string) (Language, bool) {
	if lang, ok := Languages[input]; ok {
		return lang, true
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return Language{}, false
	}
	for _, entry := range GetSupportedLanguages() {
		if strings.EqualFold(entry.Name, needle) {
			return entry.Language, true
		}
	}
	return Language{}, false
}

// LanguageEntry represents a map entry for listing.
type LanguageEntry struct {
	ID string // The map key (CLI flag)
	Language
}

// GetSupportedLanguages returns a list of supported languages sorted by Name and then ID.
func GetSupportedLanguages() []LanguageEntry {
	entries := make([]LanguageEntry, 0, len(Languages))
	for k, v := range Languages {
		entries = append(entries, LanguageEntry{ID: k, Language: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
