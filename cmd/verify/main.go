// Command verify checks that the reply templates and the page profile are
// consistent with the payloads the bot understands.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/globexvn/messenger-tracking-bot/internal/bot"
	"github.com/globexvn/messenger-tracking-bot/internal/messenger"
)

type verifyResult struct {
	name    string
	passed  bool
	message string
}

var locales = []string{"vi", "en"}

func main() {
	fmt.Println("Messenger Tracking Bot - Template Consistency Verification")
	fmt.Println("==========================================================")

	results := verifyTemplates()
	results = append(results, verifyProfile()...)

	fmt.Println("\nVerification Results:")

	passed, failed := 0, 0
	for _, r := range results {
		status := "FAIL"
		if r.passed {
			status = "ok  "
			passed++
		} else {
			failed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.name, r.message)
	}

	fmt.Printf("\nSummary: %d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// verifyTemplates checks every locale for empty copy and verb counts.
func verifyTemplates() []verifyResult {
	var results []verifyResult
	for _, locale := range locales {
		t, tag := bot.TemplatesForLocale(locale)
		prefix := "Templates[" + tag.String() + "] "

		fields := map[string]string{
			"InvalidSyntax": t.InvalidSyntax,
			"SyntaxHelp":    t.SyntaxHelp,
			"Thanks":        t.Thanks,
			"RetryImage":    t.RetryImage,
			"ImageTitle":    t.ImageTitle,
			"ImageSubtitle": t.ImageSubtitle,
			"YesTitle":      t.YesTitle,
			"NoTitle":       t.NoTitle,
		}
		var empty []string
		for name, text := range fields {
			if strings.TrimSpace(text) == "" {
				empty = append(empty, name)
			}
		}
		results = append(results, verifyResult{
			name:    prefix + "non-empty",
			passed:  len(empty) == 0,
			message: fmt.Sprintf("empty fields: %v", empty),
		})

		results = append(results,
			verbCount(prefix+"TrackingFound", t.TrackingFound, 2),
			verbCount(prefix+"TrackingNotFound", t.TrackingNotFound, 1),
		)

		found := t.Found("CODE1", "https://example.invalid/?trackingNumber=CODE1")
		results = append(results, verifyResult{
			name:    prefix + "Found renders",
			passed:  strings.Contains(found, "CODE1") && !strings.Contains(found, "%!"),
			message: found,
		})
	}
	return results
}

func verbCount(name, format string, want int) verifyResult {
	got := strings.Count(format, "%s")
	return verifyResult{
		name:    name,
		passed:  got == want && strings.Count(format, "%") == want,
		message: fmt.Sprintf("expected %d %%s verbs, got %d", want, got),
	}
}

// verifyProfile checks that every profile button sends a payload with a
// dedicated reply or the help text.
func verifyProfile() []verifyResult {
	profile := messenger.DefaultProfile()
	results := []verifyResult{{
		name:    "Profile get_started",
		passed:  profile.GetStarted != nil && profile.GetStarted.Payload == messenger.PayloadGetStarted,
		message: "Get Started button posts " + messenger.PayloadGetStarted,
	}}

	known := map[string]bool{
		messenger.PayloadGetStarted: true,
		messenger.PayloadTracking:   true,
		messenger.PayloadYes:        true,
		messenger.PayloadNo:         true,
	}
	for _, menu := range profile.PersistentMenu {
		for _, b := range menu.CallToActions {
			results = append(results, verifyResult{
				name:    "Menu item " + b.Title,
				passed:  b.Type == "postback" && known[b.Payload],
				message: fmt.Sprintf("type=%s payload=%s", b.Type, b.Payload),
			})
		}
	}
	return results
}
