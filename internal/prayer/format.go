package prayer

import (
	"golang.org/x/text/language"
)

// Entry is one prayer ready for display
type Entry struct {
	Prayer    Prayer `json:"-"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	Highlight bool   `json:"highlight"`
}

// Highlighted is the prayer the strip emphasizes
const Highlighted = Maghrib

// the first tag is the fallback for unmatched locales
var labelTags = []language.Tag{language.Indonesian, language.Malay, language.English}

var labels = map[language.Tag][5]string{
	language.Indonesian: {"Subuh", "Dhuhr", "Asr", "Maghrib", "Isha"},
	language.Malay:      {"Subuh", "Zohor", "Asar", "Maghrib", "Isyak"},
	language.English:    {"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"},
}

var labelMatcher = language.NewMatcher(labelTags)

// Format lists set in prayer order with labels for locale (a BCP 47 tag or Accept-Language value).
func Format(set TimeSet, locale string) []Entry {
	names := labels[matchLocale(locale)]

	entries := make([]Entry, 0, len(Prayers))
	for _, p := range Prayers {
		entries = append(entries, Entry{
			Prayer:    p,
			Label:     names[p],
			Value:     clock(set.Get(p)),
			Highlight: p == Highlighted,
		})
	}
	return entries
}

func matchLocale(locale string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return labelTags[0]
	}
	_, idx, conf := labelMatcher.Match(tags...)
	if conf == language.No {
		return labelTags[0]
	}
	return labelTags[idx]
}

// clock keeps hour:minute, dropping seconds and zone suffixes
func clock(v string) string {
	if n, ok := normalizeClock(v); ok {
		return n
	}
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
