package report_test

import (
	"testing"

	"trackbot/backend/internal/models"
	"trackbot/backend/internal/report"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "A\\*B\\_C\\`D\\[E\\]", report.EscapeMarkdown("A*B_C`D[E]"))
	assert.Equal(t, "", report.EscapeMarkdown(""))
	assert.Equal(t, "Ruta Norte (1)", report.EscapeMarkdown("Ruta Norte (1)"))
}

func TestTimingRender_EscapesNames(t *testing.T) {
	rep := report.TimingReport{Entries: []models.TimingEntry{
		{GroupName: "G_1", UserName: "*Ana*", DistanceKm: 1.5, DurationMin: 3},
	}}

	assert.Contains(t, rep.Render(), "1. 🚚 *G\\_1* - \\*Ana\\*:\n   - Dist: 1.50 km\n   - ETA: 3 minutos\n")
}

func TestTimingRender_EmptyHasOnlyHeader(t *testing.T) {
	assert.Equal(t, "📍 *Reporte General de Timing*\n\n", report.TimingReport{}.Render())
}
