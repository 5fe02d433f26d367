// Package outreach builds and delivers tiered cold-outreach email.
package outreach

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gconnect/leadgen-cli/internal/model"
)

// Message is a rendered outreach email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Templater renders tier-specific outreach messages with tracked
// response links.
type Templater struct {
	SenderName      string
	SenderEmail     string
	TrackingBaseURL string
}

var suffixRe = regexp.MustCompile(`(?i)pvt|ltd|group|corp|est|&|and|'s`)

var titler = cases.Title(language.English)

// Greeting derives a personal salutation from a business name. Corporate
// suffixes are stripped; the first remaining word is used only when it is
// between 3 and 9 characters, otherwise the fallback is "Team".
func Greeting(name string) string {
	clean := strings.TrimSpace(suffixRe.ReplaceAllString(name, ""))
	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return "Team"
	}
	first := []rune(parts[0])
	if len(first) > 2 && len(first) < 10 {
		return parts[0]
	}
	return "Team"
}

// displayCategory turns a raw tag value like "real_estate" into a
// human-readable label.
func displayCategory(category string) string {
	return titler.String(strings.ReplaceAll(category, "_", " "))
}

// interestedLink builds the tracked positive-response URL. Clicking it
// records the lead as interested.
func (t Templater) interestedLink(lead model.Lead) string {
	q := url.Values{}
	q.Set("email", lead.Email)
	q.Set("name", lead.Name)
	q.Set("category", lead.Category)
	return t.TrackingBaseURL + "/user/interested?" + q.Encode()
}

// notInterestedLink builds the negative-response mailto link back to the
// sender.
func (t Templater) notInterestedLink(lead model.Lead) string {
	q := url.Values{}
	q.Set("subject", fmt.Sprintf("Re: %s - Local Strategy", lead.Name))
	q.Set("body", "Thanks, but not interested.")
	return "mailto:" + t.SenderEmail + "?" + q.Encode()
}

// Build renders the outreach message for a lead based on its tier.
func (t Templater) Build(lead model.Lead) Message {
	greeting := Greeting(lead.Name)
	category := displayCategory(lead.Category)

	var subject, body string
	switch lead.Tier {
	case model.TierHot:
		subject = fmt.Sprintf("Growth Plan for %s — Quick Meet?", lead.Name)
		body = fmt.Sprintf("Hi %s,\nWe help businesses like %s get more customers.\nFound opportunities for %s.\nLet's discuss.\nClick below:\nBest,\n%s",
			greeting, lead.Name, category, t.SenderName)
	case model.TierWarm:
		subject = fmt.Sprintf("Review your %s visibility?", category)
		body = fmt.Sprintf("Hello %s,\nSaw quick wins for %s (%s).\nHappy to share.\nClick below:\nRegards,\n%s",
			greeting, lead.Name, lead.RawWebsite, t.SenderName)
	default:
		subject = fmt.Sprintf("Idea for %s", lead.Name)
		body = fmt.Sprintf("Hi %s,\nTips for %s businesses available.\nClick below:\nThanks,\n%s",
			greeting, category, t.SenderName)
	}

	const btnStyle = "display:inline-block;padding:12px 25px;margin:10px 5px;color:#fff;text-decoration:none;border-radius:5px;font-weight:bold;text-align:center;"
	buttons := fmt.Sprintf(`<div style="margin-top:20px;">
  <a href="%s" style="%sbackground:#4CAF50;">Yes, I'm Interested</a>
  <a href="%s" style="%sbackground:#f44336;">No, Not Interested</a>
</div>`, t.interestedLink(lead), btnStyle, t.notInterestedLink(lead), btnStyle)

	return Message{
		Subject: subject,
		Text:    body,
		HTML:    fmt.Sprintf(`<p style="white-space:pre-wrap;">%s</p>%s`, body, buttons),
	}
}
