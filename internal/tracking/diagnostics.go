package tracking

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"trackbot/backend/internal/config"
	"trackbot/backend/internal/report"
)

// Diagnostics renders an admin-only Markdown dump of the registry.
func (s *Service) Diagnostics(fromUserID int64, now time.Time) (string, error) {
	if err := s.admins.Require(fromUserID); err != nil {
		return "", err
	}

	stats := s.registry.Stats()
	var b strings.Builder

	b.WriteString("📊 *Diagnóstico del Sistema*\n\n")

	fmt.Fprintf(&b, "*Grupos Registrados:* %d\n", len(stats.Chats))
	for _, c := range stats.Chats {
		fmt.Fprintf(&b, "   - %s (ID: %d)\n", report.EscapeMarkdown(c.Name), c.ID)
	}

	b.WriteString("\n*Ubicaciones Registradas por Grupo:*\n")
	for _, a := range stats.Activity {
		fmt.Fprintf(&b, "   - %s: %d usuarios\n", report.EscapeMarkdown(a.Name), a.Users)
	}

	fmt.Fprintf(&b, "\n*Usuarios Registrados:* %d\n", len(stats.DisplayNames))
	ids := make([]int64, 0, len(stats.DisplayNames))
	for id := range stats.DisplayNames {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("   - %s (ID: %d)", report.EscapeMarkdown(stats.DisplayNames[id]), id))
	}
	userList := []rune(strings.Join(lines, "\n"))
	if len(userList) > config.DiagnosticsUserListLimit {
		fmt.Fprintf(&b, "%s...\n   (lista truncada)\n", string(userList[:config.DiagnosticsUserListLimit]))
	} else {
		fmt.Fprintf(&b, "%s\n", string(userList))
	}

	b.WriteString("\n*Últimas Actualizaciones:*\n")
	for _, a := range stats.Activity {
		if a.NewestUpdate.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "   - %s: Hace %d minutos\n", report.EscapeMarkdown(a.Name), report.MinutesSince(now, a.NewestUpdate))
	}

	admins := s.admins.IDs()
	idText := make([]string, 0, len(admins))
	for _, id := range admins {
		idText = append(idText, fmt.Sprint(id))
	}
	fmt.Fprintf(&b, "\n*Administradores Configurados:* %d\n", len(admins))
	fmt.Fprintf(&b, "   - IDs: %s\n", strings.Join(idText, ", "))

	return b.String(), nil
}
