package tracking

import (
	"errors"
	"strconv"
	"strings"

	"trackbot/backend/internal/localization"
	"trackbot/backend/internal/report"
)

var (
	ErrInvalidEntry  = errors.New("invalid entry")
	ErrInvalidUserID = errors.New("invalid user id")
)

// NameAssignment is one parsed "id:name" pair.
type NameAssignment struct {
	Raw    string
	RawID  string
	UserID int64
	Name   string
	Err    error
}

type BatchResult struct {
	Assignments []NameAssignment
	Succeeded   int
	Failed      int
}

// ParseNameAssignments splits "id1:name1, id2:name2". A name may itself contain ':'.
func ParseNameAssignments(batch string) []NameAssignment {
	var out []NameAssignment
	for _, entry := range strings.Split(batch, ",") {
		entry = strings.TrimSpace(entry)

		parts := strings.Split(entry, ":")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		a := NameAssignment{Raw: entry, RawID: parts[0]}
		if len(parts) > 1 {
			a.Name = strings.TrimSpace(strings.Join(parts[1:], ":"))
		}

		switch {
		case a.RawID == "" || a.Name == "":
			a.Err = ErrInvalidEntry
		default:
			id, err := strconv.ParseInt(a.RawID, 10, 64)
			if err != nil {
				a.Err = ErrInvalidUserID
			} else {
				a.UserID = id
			}
		}
		out = append(out, a)
	}
	return out
}

// Render builds the Markdown summary sent back to the admin.
func (r BatchResult) Render(texts *localization.Localizer) string {
	var b strings.Builder
	b.WriteString(texts.Text("changeops_header"))
	for _, a := range r.Assignments {
		switch {
		case errors.Is(a.Err, ErrInvalidEntry):
			b.WriteString(texts.Text("changeops_invalid_entry", report.EscapeMarkdown(a.Raw)))
		case errors.Is(a.Err, ErrInvalidUserID):
			b.WriteString(texts.Text("changeops_invalid_id", report.EscapeMarkdown(a.RawID)))
		default:
			b.WriteString(texts.Text("changeops_ok", a.UserID, report.EscapeMarkdown(a.Name)))
		}
	}
	b.WriteString(texts.Text("changeops_summary", r.Succeeded))
	if r.Failed > 0 {
		b.WriteString(texts.Text("changeops_summary_failed", r.Failed))
	}
	return b.String()
}
