package followup

import (
	"strings"

	"github.com/rankitpro/review-followup/internal/model"
)

const (
	PlaceholderCustomerName   = "customerName"
	PlaceholderCompanyName    = "companyName"
	PlaceholderTechnicianName = "technicianName"
	PlaceholderServiceType    = "serviceType"
	PlaceholderLocation       = "location"
	PlaceholderReviewLink     = "reviewLink"
)

var knownPlaceholders = map[string]struct{}{
	PlaceholderCustomerName:   {},
	PlaceholderCompanyName:    {},
	PlaceholderTechnicianName: {},
	PlaceholderServiceType:    {},
	PlaceholderLocation:       {},
	PlaceholderReviewLink:     {},
}

// Values maps placeholder names to their substitutions.
type Values map[string]string

// ValuesFor collects the placeholder values known for status. Empty fields
// are left out so their placeholders stay visible in the output.
func ValuesFor(status *model.ReviewRequestStatus, settings *model.FollowUpSettings, reviewLink string) Values {
	v := Values{}
	put := func(k, val string) {
		if val != "" {
			v[k] = val
		}
	}
	put(PlaceholderCustomerName, status.CustomerName)
	put(PlaceholderCompanyName, settings.CompanyName)
	put(PlaceholderTechnicianName, status.TechnicianName)
	put(PlaceholderServiceType, status.ServiceType)
	put(PlaceholderLocation, status.Location)
	put(PlaceholderReviewLink, reviewLink)
	return v
}

// Render substitutes {{name}} placeholders. A placeholder without a value,
// or an unterminated "{{", is copied through unchanged.
func Render(template string, values Values) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	var b strings.Builder
	b.Grow(len(template))
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		token := rest[open : open+2+end+2]
		if val, ok := values[strings.TrimSpace(token[2:len(token)-2])]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(token)
		}
		rest = rest[open+2+end+2:]
	}
	return b.String()
}

// RenderedMessage is one channel's output for a stage. Subject is empty for SMS.
type RenderedMessage struct {
	Channel model.Channel `json:"channel"`
	Subject string        `json:"subject,omitempty"`
	Body    string        `json:"body"`
}

// RenderStage renders stage for every enabled channel, email first.
func RenderStage(settings *model.FollowUpSettings, stage model.Stage, values Values) []RenderedMessage {
	cfg := settings.StageConfig(stage)
	var out []RenderedMessage
	for _, ch := range settings.Channels() {
		switch ch {
		case model.ChannelEmail:
			out = append(out, RenderedMessage{
				Channel: ch,
				Subject: Render(cfg.SubjectTemplate, values),
				Body:    Render(cfg.MessageTemplate, values),
			})
		case model.ChannelSMS:
			out = append(out, RenderedMessage{Channel: ch, Body: Render(smsTemplate(cfg), values)})
		}
	}
	return out
}

func smsTemplate(cfg model.StageSettings) string {
	if strings.TrimSpace(cfg.SmsTemplate) != "" {
		return cfg.SmsTemplate
	}
	return cfg.MessageTemplate
}

// placeholders lists the names used in template, or describes the first
// syntax problem found.
func placeholders(template string) ([]string, string) {
	var names []string
	rest := template
	for {
		open := strings.Index(rest, "{{")
		closeIdx := strings.Index(rest, "}}")
		if open < 0 {
			if closeIdx >= 0 {
				return names, "unmatched \"}}\""
			}
			return names, ""
		}
		if closeIdx >= 0 && closeIdx < open {
			return names, "unmatched \"}}\""
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			return names, "unterminated \"{{\""
		}
		inner := rest[open+2 : open+2+end]
		if strings.Contains(inner, "{{") {
			return names, "nested \"{{\""
		}
		name := strings.TrimSpace(inner)
		if name == "" {
			return names, "empty placeholder"
		}
		names = append(names, name)
		rest = rest[open+2+end+2:]
	}
}
