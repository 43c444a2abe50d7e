package catalog

// NoTranslation is the selector key for "audio only"
const NoTranslation = "none"

// Translation is a text edition shown next to the recited verse.
// An empty Edition means no translation.
type Translation struct {
	Key     string
	Name    string
	Edition string
}

// Enabled reports whether text has to be fetched for this selection
func (t Translation) Enabled() bool {
	return t.Edition != ""
}

var translations = []Translation{
	{Key: NoTranslation, Name: "No translation"},
	{Key: "en", Name: "English (Saheeh International)", Edition: "en.sahih"},
	{Key: "en-pickthall", Name: "English (Pickthall)", Edition: "en.pickthall"},
	{Key: "ur", Name: "Urdu (Jalandhry)", Edition: "ur.jalandhry"},
	{Key: "fr", Name: "French (Hamidullah)", Edition: "fr.hamidullah"},
	{Key: "de", Name: "German (Abu Rida)", Edition: "de.aburida"},
	{Key: "id", Name: "Indonesian (Kemenag)", Edition: "id.indonesian"},
	{Key: "tr", Name: "Turkish (Diyanet)", Edition: "tr.diyanet"},
}

// Translations returns all translation entries, "none" first
func Translations() []Translation {
	out := make([]Translation, len(translations))
	copy(out, translations)
	return out
}

// TranslationByKey looks up a translation entry
func TranslationByKey(key string) (Translation, bool) {
	for _, t := range translations {
		if t.Key == key {
			return t, true
		}
	}
	return Translation{}, false
}

// TranslationOrNone resolves unknown keys to "no translation"
func TranslationOrNone(key string) Translation {
	if t, ok := TranslationByKey(key); ok {
		return t
	}
	return translations[0]
}
