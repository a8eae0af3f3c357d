package bot

import (
	"fmt"

	"golang.org/x/text/language"
)

// Templates is the user-facing copy for one language. TrackingFound takes the
// code and the tracking page URL; TrackingNotFound takes the code.
type Templates struct {
	TrackingFound    string
	TrackingNotFound string
	InvalidSyntax    string
	SyntaxHelp       string
	Thanks           string
	RetryImage       string

	ImageTitle    string
	ImageSubtitle string
	YesTitle      string
	NoTitle       string
}

// Found renders the reply for a code the lookup service knows.
func (t Templates) Found(code, trackingURL string) string {
	return fmt.Sprintf(t.TrackingFound, code, trackingURL)
}

// NotFound renders the reply for an unknown code or a failed lookup.
func (t Templates) NotFound(code string) string {
	return fmt.Sprintf(t.TrackingNotFound, code)
}

// Image confirmation copy is shared by every locale.
const (
	imageTitle    = "Is this the right picture?"
	imageSubtitle = "Tap a button to answer."
)

// VietnameseTemplates is the copy of the production page.
var VietnameseTemplates = Templates{
	TrackingFound:    "Bấm vào link để xem tình trạng đơn hàng %s : %s. Nhập mã đơn hàng để xem tình trạng đơn hàng khác.",
	TrackingNotFound: "Không tìm thấy tình trạng đơn hàng %s. Nhập mã vận đơn để xem tình trạng đơn hàng khác.",
	InvalidSyntax:    "Cú pháp không hợp lệ, nhập mã vận đơn với cú pháp : /t (mã vận đơn) hoặc tìm nhiều mã vận đơn : /t (mã vận đơn 1,mã vận đơn 2,...)",
	SyntaxHelp:       "Nhập mã vận đơn với cú pháp : /t (mã vận đơn) hoặc tìm nhiều mã vận đơn : /t (mã vận đơn 1,mã vận đơn 2,...)",
	Thanks:           "Thanks!",
	RetryImage:       "Oops, try sending another image.",
	ImageTitle:       imageTitle,
	ImageSubtitle:    imageSubtitle,
	YesTitle:         "Yes!",
	NoTitle:          "No!",
}

var EnglishTemplates = Templates{
	TrackingFound:    "Open the link to see the status of order %s : %s. Send another tracking code to check a different order.",
	TrackingNotFound: "No status found for order %s. Send another tracking code to check a different order.",
	InvalidSyntax:    "Invalid syntax. Send a tracking code as: /t (tracking code), or several codes as: /t (code 1,code 2,...)",
	SyntaxHelp:       "Send a tracking code as: /t (tracking code), or several codes as: /t (code 1,code 2,...)",
	Thanks:           "Thanks!",
	RetryImage:       "Oops, try sending another image.",
	ImageTitle:       imageTitle,
	ImageSubtitle:    imageSubtitle,
	YesTitle:         "Yes!",
	NoTitle:          "No!",
}

// The first tag is the fallback for unmatched locales.
var (
	supportedLocales = []language.Tag{language.Vietnamese, language.English}
	localeTemplates  = []Templates{VietnameseTemplates, EnglishTemplates}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

// TemplatesForLocale picks the closest template set for a BCP 47 locale or
// Accept-Language style list ("en-US", "vi", "fr, en;q=0.8"). Unknown or
// unparsable locales get Vietnamese.
func TemplatesForLocale(locale string) (Templates, language.Tag) {
	_, index := language.MatchStrings(localeMatcher, locale)
	return localeTemplates[index], supportedLocales[index]
}
