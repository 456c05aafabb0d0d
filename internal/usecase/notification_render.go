package usecase

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"telegram-link-notifier/internal/domain/model"
)

// renderer builds notification events. baseURL is the platform web app.
type renderer struct {
	baseURL string
}

func (r renderer) link(path string) string {
	if r.baseURL == "" {
		return ""
	}
	return r.baseURL + path
}

// actions drops links that cannot be built without a base URL.
func actions(links ...model.ActionLink) []model.ActionLink {
	out := make([]model.ActionLink, 0, len(links))
	for _, l := range links {
		if l.URL != "" {
			out = append(out, l)
		}
	}
	return out
}

func (r renderer) shipment(s model.Shipment, kind model.EventKind) model.NotificationEvent {
	ev := model.NotificationEvent{
		Kind:     kind,
		EntityID: s.ID,
		Emoji:    "📦",
		Title:    "Shipment Update",
		Summary:  shipmentSummary(s),
		Actions: actions(
			model.ActionLink{Label: "📊 View Details", URL: r.link("/track/" + s.ID)},
			model.ActionLink{Label: "🗺️ Track", URL: r.link("/map/" + s.ID)},
		),
	}
	switch kind {
	case model.KindCreated:
		ev.Emoji, ev.Title = "✅", "New Shipment Created"
		ev.Body = fmt.Sprintf("Your shipment %s has been created and is ready for pickup.", s.ID)
	case model.KindStatusChanged:
		ev.Emoji, ev.Title = statusEmoji(s.Status), "Status Update"
		ev.Body = fmt.Sprintf("Shipment %s status: *%s*", s.ID, displayStatus(s.Status))
	case model.KindLocationUpdated:
		loc := s.CurrentLocation
		if loc == "" {
			loc = "In transit"
		}
		ev.Emoji, ev.Title = "📍", "Location Update"
		ev.Body = fmt.Sprintf("Shipment %s is now at: %s", s.ID, loc)
	case model.KindDelivered:
		ev.Emoji, ev.Title = "🎉", "Delivery Complete"
		ev.Body = fmt.Sprintf("Great news! Shipment %s has been delivered successfully.", s.ID)
	}
	return ev
}

func (r renderer) disruption(d model.Disruption, s *model.Shipment) model.NotificationEvent {
	title := strings.TrimSpace(d.Type)
	if title == "" {
		title = "Disruption"
	}
	var body strings.Builder
	fmt.Fprintf(&body, "📦 Shipment: %s", d.ShipmentID)
	if d.Location != "" {
		fmt.Fprintf(&body, "\n📍 Location: %s", d.Location)
	}
	if d.EstimatedDelay != "" {
		fmt.Fprintf(&body, "\n⏱️ Delay: %s", d.EstimatedDelay)
	}
	fmt.Fprintf(&body, "\n⚡ Severity: %s", strings.ToUpper(string(d.Severity)))
	if d.Message != "" {
		body.WriteString("\n\n")
		body.WriteString(d.Message)
	}
	if len(d.Suggestions) > 0 {
		body.WriteString("\n\n*Suggested Actions:*")
		for i, sug := range d.Suggestions {
			fmt.Fprintf(&body, "\n%d. %s", i+1, sug)
		}
	}

	ev := model.NotificationEvent{
		Kind:     model.KindDisruption,
		EntityID: d.ShipmentID,
		Emoji:    severityEmoji(d.Severity),
		Title:    capitalize(title),
		Body:     body.String(),
		Actions: actions(
			model.ActionLink{Label: "📦 View Shipment", URL: r.link("/track/" + d.ShipmentID)},
			model.ActionLink{Label: "🆘 Get Help", URL: r.link("/support")},
		),
	}
	if s != nil && s.ID != "" {
		ev.Summary = shipmentSummary(*s)
	}
	return ev
}

func shipmentSummary(s model.Shipment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Shipment %s*\n", s.ID)
	if s.Origin != "" || s.Destination != "" {
		fmt.Fprintf(&b, "\n📍 Route: %s → %s", orDash(s.Origin), orDash(s.Destination))
	}
	if s.Customer != "" {
		fmt.Fprintf(&b, "\n🏢 Customer: %s", s.Customer)
	}
	if s.Carrier != "" {
		fmt.Fprintf(&b, "\n🚚 Carrier: %s", s.Carrier)
	}
	if s.Status != "" {
		fmt.Fprintf(&b, "\n📊 Status: %s", displayStatus(s.Status))
	}
	if s.EstimatedDelivery != "" {
		fmt.Fprintf(&b, "\n⏰ ETA: %s", s.EstimatedDelivery)
	}
	if len(s.Items) > 0 {
		fmt.Fprintf(&b, "\n📋 Items: %d", len(s.Items))
	}
	if s.Progress > 0 {
		fmt.Fprintf(&b, "\n📈 Progress: %d%%", s.Progress)
	}
	return strings.TrimSpace(b.String())
}

func displayStatus(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", " "))
}

func statusEmoji(status string) string {
	switch strings.ToLower(status) {
	case "delivered":
		return "🎉"
	case "delayed":
		return "⚠️"
	default:
		return "🚚"
	}
}

func severityEmoji(s model.Severity) string {
	switch s {
	case model.SeverityMedium:
		return "🔶"
	case model.SeverityHigh:
		return "🚨"
	case model.SeverityCritical:
		return "🛑"
	default:
		return "⚠️"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
