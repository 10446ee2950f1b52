package sumit

import (
	"context"

	"golang.org/x/text/language"
)

type localeKey struct{}

// supportedTags are the languages the gateway localises messages into
var (
	supportedTags = []language.Tag{
		language.Hebrew,
		language.English,
		language.Arabic,
		language.Russian,
	}
	supported = language.NewMatcher(supportedTags)
)

// WithLocale stores the request locale used for Content-Language
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// LocaleFrom returns the locale stored in ctx, or fallback
func LocaleFrom(ctx context.Context, fallback string) string {
	if l, ok := ctx.Value(localeKey{}).(string); ok && l != "" {
		return l
	}
	return fallback
}

// MatchLocale maps an Accept-Language header to a supported base language
func MatchLocale(acceptLanguage, fallback string) string {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := supported.Match(tags...)
	if conf == language.No {
		return fallback
	}
	base, _ := supportedTags[idx].Base()
	return base.String()
}
