package report

import (
	"fmt"
	"strings"

	"trackbot/backend/internal/config"
)

var markdownEscaper = strings.NewReplacer(
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
)

// EscapeMarkdown backslash-prefixes the characters Telegram's legacy Markdown treats as markup.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

const routeErrorText = "Error al calcular la ruta."

// Render formats the timing report as Telegram Markdown.
func (r TimingReport) Render() string {
	var b strings.Builder
	b.WriteString("📍 *Reporte General de Timing*\n\n")

	for i, e := range r.Entries {
		fmt.Fprintf(&b, "%d. 🚚 *%s* - %s:\n", i+1, EscapeMarkdown(e.GroupName), EscapeMarkdown(e.UserName))
		fmt.Fprintf(&b, "   - Dist: %.2f km\n", e.DistanceKm)
		fmt.Fprintf(&b, "   - ETA: %d minutos\n", e.DurationMin)
		writeStaleness(&b, e.MinutesSinceUpdate)
		b.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		b.WriteString("\n❌ *Usuarios con error*:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- %s - %s: %s\n", EscapeMarkdown(e.GroupName), EscapeMarkdown(e.UserName), routeErrorText)
		}
	}
	return b.String()
}

// Render formats the geo report as Telegram Markdown.
func (r GeoReport) Render() string {
	var b strings.Builder
	b.WriteString("📍 *Reporte General de Geo*\n\n")

	for i, e := range r.Entries {
		fmt.Fprintf(&b, "%d. 🚚 *%s* - %s:\n", i+1, EscapeMarkdown(e.GroupName), EscapeMarkdown(e.UserName))
		fmt.Fprintf(&b, "   - Lugar: col. %s, Mun %s\n", EscapeMarkdown(e.Place.Neighborhood), EscapeMarkdown(e.Place.Municipality))
		writeStaleness(&b, e.MinutesSinceUpdate)
		b.WriteString("\n")
	}
	return b.String()
}

func writeStaleness(b *strings.Builder, minutes int) {
	if minutes >= config.StaleAnnotationMinutes {
		fmt.Fprintf(b, "   - ultima act: %d min\n", minutes)
	}
}
