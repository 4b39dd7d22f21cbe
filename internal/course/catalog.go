package course

import "strings"

// Type identifies a purchasable course.
type Type string

// Known course types. These double as the tag embedded in order references,
// so they must never contain an underscore.
const (
	TypeBasic    Type = "basic"
	TypeAdvanced Type = "advanced"
)

// Locale is a supported customer-facing language tag.
type Locale string

// Supported locales.
const (
	LocaleUK Locale = "uk"
	LocaleEN Locale = "en"
)

// Info describes a course as sold: its server-side price in whole currency
// units and the localized copy used in payment descriptions and emails.
type Info struct {
	Type        Type
	Price       int64
	Title       map[Locale]string
	Description map[Locale]string
}

// Prices are resolved here and only here. Client-supplied amounts are
// rejected upstream so a caller can never influence what gets signed.
var catalog = map[Type]Info{
	TypeBasic: {
		Type:  TypeBasic,
		Price: 900,
		Title: map[Locale]string{
			LocaleUK: "Базовий курс макіяжу",
			LocaleEN: "Basic Makeup Course",
		},
		Description: map[Locale]string{
			LocaleUK: "Основи макіяжу",
			LocaleEN: "Makeup basics",
		},
	},
	TypeAdvanced: {
		Type:  TypeAdvanced,
		Price: 1800,
		Title: map[Locale]string{
			LocaleUK: "Преміум курс макіяжу",
			LocaleEN: "Premium Makeup Course",
		},
		Description: map[Locale]string{
			LocaleUK: "Професійний макіяж та просунуті техніки",
			LocaleEN: "Professional makeup and advanced techniques",
		},
	},
}

// Lookup resolves a course type string to catalog info.
func Lookup(value string) (Info, bool) {
	info, ok := catalog[Type(strings.TrimSpace(strings.ToLower(value)))]
	return info, ok
}

// ParseLocale normalises a language tag, defaulting to English.
func ParseLocale(value string) Locale {
	if strings.EqualFold(strings.TrimSpace(value), string(LocaleUK)) {
		return LocaleUK
	}
	return LocaleEN
}

// LocalTitle returns the localized course title.
func (i Info) LocalTitle(loc Locale) string {
	if t, ok := i.Title[loc]; ok {
		return t
	}
	return i.Title[LocaleEN]
}

// LocalDescription returns the localized course description.
func (i Info) LocalDescription(loc Locale) string {
	if d, ok := i.Description[loc]; ok {
		return d
	}
	return i.Description[LocaleEN]
}
