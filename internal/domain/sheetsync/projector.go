package sheetsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/registration"
)

// Mode labels a narrative log entry.
type Mode string

const (
	ModeNew     Mode = "New entry"
	ModeUpdated Mode = "Updated entry"
)

// submittedLayout is the human-readable timestamp in the sheet's last
// column. Fixed pattern; rendered in the configured sync timezone.
const submittedLayout = "02 Jan 2006, 03:04 PM"

// ProjectRow converts a registration into the fixed 7-column data row
// matching sheets.RowHeader. Column order and count are part of the
// external contract.
func ProjectRow(reg *registration.EventRegistration, loc *time.Location) []interface{} {
	if loc == nil {
		loc = time.UTC
	}
	return []interface{}{
		reg.Name,
		reg.Email,
		reg.Phone,
		reg.State,
		reg.Qualification,
		reg.Course,
		reg.CreatedAt.In(loc).Format(submittedLayout),
	}
}

// ProjectLogBlock renders the append-only narrative block for the event's
// log document. The document is an audit trail, not current state: blocks
// accumulate, one per sync, terminated by a blank line.
func ProjectLogBlock(reg *registration.EventRegistration, mode Mode, at time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s | %s\n", mode, at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Registration: %s\n", reg.ID)
	fmt.Fprintf(&b, "Name: %s\n", reg.Name)
	fmt.Fprintf(&b, "Email: %s\n", reg.Email)
	fmt.Fprintf(&b, "Phone: %s\n", reg.Phone)
	if reg.State != "" {
		fmt.Fprintf(&b, "State: %s\n", reg.State)
	}
	if reg.Qualification != "" {
		fmt.Fprintf(&b, "Qualification: %s\n", reg.Qualification)
	}
	fmt.Fprintf(&b, "Event: %s\n", reg.Course)

	// Optional linkage drawn from the registration's event_details blob.
	if v := reg.EventDetailString("joinUrl"); v != "" {
		fmt.Fprintf(&b, "Join URL: %s\n", v)
	}
	if v := reg.EventDetailString("startTime"); v != "" {
		fmt.Fprintf(&b, "Starts: %s\n", v)
	}
	if v := reg.EventDetailString("timezone"); v != "" {
		fmt.Fprintf(&b, "Timezone: %s\n", v)
	}
	if v := reg.EventDetailString("hostName"); v != "" {
		fmt.Fprintf(&b, "Host: %s\n", v)
	}

	b.WriteString("\n")
	return b.String()
}

// ProjectEventMetadata converts an event into the label/value rows of the
// sink's metadata tab: a header row followed by non-empty fields only.
func ProjectEventMetadata(ev *event.Event) [][]interface{} {
	rows := [][]interface{}{{"Field", "Value"}}

	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		rows = append(rows, []interface{}{label, value})
	}

	add("Title", ev.Title)
	add("Slug", ev.Slug)
	add("Description", ev.Description)
	add("Schedule", formatSchedule(ev))
	add("Timezone", ev.Timezone)
	add("Host", ev.HostName)
	add("Join URL", ev.JoinURL)
	add("Pricing", formatPrice(ev))
	add("Call to action", ev.CallToAction)
	add("Tags", strings.Join(ev.Tags, ", "))
	add("Highlights", strings.Join(ev.Highlights, "; "))
	add("Agenda", strings.Join(ev.Agenda, "; "))

	return rows
}

func formatSchedule(ev *event.Event) string {
	const layout = "02 Jan 2006, 03:04 PM"
	switch {
	case ev.StartTime != nil && ev.EndTime != nil:
		return ev.StartTime.Format(layout) + " to " + ev.EndTime.Format(layout)
	case ev.StartTime != nil:
		return ev.StartTime.Format(layout)
	default:
		return ""
	}
}

func formatPrice(ev *event.Event) string {
	if ev.Price <= 0 {
		return ""
	}
	currency := ev.Currency
	if currency == "" {
		currency = "INR"
	}
	return fmt.Sprintf("%s %.2f", currency, ev.Price)
}
