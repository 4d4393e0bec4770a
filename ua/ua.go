// Package ua classifies user-agent strings for click analytics and for the
// bot/content negotiation on the redirect path. Parsing is pure, no I/O.
package ua

import (
	"strings"

	"stub-router/model"

	useragent "github.com/mileusna/useragent"
)

// botNames maps user-agent substrings to curated crawler labels so
// well-known bots are distinguished from the generic "Bot" bucket. Kept as
// a data table: extend it without touching control flow.
var botNames = []struct {
	pattern string
	name    string
}{
	{"googlebot", "Google"},
	{"bingbot", "Bing"},
	{"yandex", "Yandex"},
	{"baiduspider", "Baidu"},
	{"duckduckbot", "DuckDuckGo"},
	{"slurp", "Yahoo"},
	{"teoma", "Ask"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitter"},
	{"linkedinbot", "LinkedIn"},
	{"slackbot", "Slack"},
	{"discordbot", "Discord"},
	{"telegrambot", "Telegram"},
	{"whatsapp", "WhatsApp"},
	{"applebot", "Apple"},
	{"metainspector", "MetaInspector"},
}

// genericBot catches undifferentiated crawlers after the curated table.
var genericBot = []string{"bot", "crawler", "spider"}

// crawlerPatterns is the set the content negotiator uses to decide whether
// to serve a synthetic preview page instead of a redirect:
// - bot is for most bots & crawlers
// - facebookexternalhit is for the Facebook crawler
// - MetaInspector is for https://metatags.io/
var crawlerPatterns = []string{
	"bot", "facebookexternalhit", "google", "baidu", "bing",
	"msn", "duckduckbot", "teoma", "slurp", "yandex", "metainspector",
}

// Parse classifies a raw user-agent string into device, OS, browser and
// bot identity. Unknown values come back as "Unknown", never empty.
func Parse(raw string) model.UserAgent {
	lower := strings.ToLower(raw)

	if name, ok := botName(lower); ok {
		return model.UserAgent{
			Device:  "Bot",
			OS:      "Unknown",
			Browser: "Unknown",
			IsBot:   true,
			BotName: name,
		}
	}

	parsed := useragent.Parse(raw)

	if parsed.Bot {
		return model.UserAgent{
			Device:  "Bot",
			OS:      "Unknown",
			Browser: "Unknown",
			IsBot:   true,
			BotName: "Bot",
		}
	}

	device := "Unknown"
	switch {
	case parsed.Mobile:
		device = "Mobile"
	case parsed.Tablet:
		device = "Tablet"
	case parsed.Desktop:
		device = "Desktop"
	}

	os := parsed.OS
	if os == "" {
		os = "Unknown"
	}
	browser := parsed.Name
	if browser == "" {
		browser = "Unknown"
	}

	return model.UserAgent{
		Device:  device,
		OS:      os,
		Browser: browser,
	}
}

// IsCrawler reports whether the user agent belongs to a known crawler or
// link-preview unfurler that should receive the synthetic preview page.
func IsCrawler(raw string) bool {
	if raw == "" {
		return false
	}
	lower := strings.ToLower(raw)
	for _, pattern := range crawlerPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func botName(lower string) (string, bool) {
	for _, entry := range botNames {
		if strings.Contains(lower, entry.pattern) {
			return entry.name, true
		}
	}
	for _, pattern := range genericBot {
		if strings.Contains(lower, pattern) {
			return "Bot", true
		}
	}
	return "", false
}
