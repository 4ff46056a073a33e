package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kbukum/querykit/api"
	"github.com/kbukum/querykit/component"
	"github.com/kbukum/querykit/query"
	"github.com/kbukum/querykit/util"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

const (
	titleWidth = 40
	bodyWidth  = 60
)

// Colors.
var (
	iris   = lipgloss.Color("#8B5CF6")
	slate  = lipgloss.Color("#667085")
	green  = lipgloss.Color("#22A06B")
	red    = lipgloss.Color("#D93025")
	yellow = lipgloss.Color("#F59E0B")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(iris).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = cellStyle.Foreground(slate)
	okStyle     = lipgloss.NewStyle().Foreground(green)
	errStyle    = lipgloss.NewStyle().Foreground(red)
	warnStyle   = lipgloss.NewStyle().Foreground(yellow)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(slate)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func writeTable(w io.Writer, t *table.Table) error {
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// render writes v as JSON or the table built by build.
func (c *CLI) render(w io.Writer, v any, build func() *table.Table) error {
	if c.output == formatJSON {
		return writeJSON(w, v)
	}
	return writeTable(w, build())
}

func usersTable(users []api.User) *table.Table {
	t := newTable("ID", "", "NAME", "USERNAME", "EMAIL")
	for _, u := range users {
		t.Row(strconv.Itoa(u.ID), util.Initials(u.Name), u.Name, u.Username, u.Email)
	}
	return t
}

func userTable(u api.User) *table.Table {
	return detailTable(
		"ID", strconv.Itoa(u.ID),
		"Name", u.Name,
		"Username", u.Username,
		"Email", u.Email,
		"Phone", u.Phone,
		"Website", u.Website,
		"City", u.Address.City,
		"Company", u.Company.Name,
	)
}

// postsTable labels each post with its author's name from users, falling
// back to util.UnknownUser.
func postsTable(posts []api.Post, users []api.User) *table.Table {
	names := make(map[int]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	t := newTable("ID", "AUTHOR", "TITLE")
	for _, p := range posts {
		t.Row(strconv.Itoa(p.ID), util.Coalesce(names[p.UserID], util.UnknownUser), util.Truncate(p.Title, titleWidth))
	}
	return t
}

func postTable(p api.Post, author string) *table.Table {
	return detailTable(
		"ID", strconv.Itoa(p.ID),
		"Author", author,
		"Title", p.Title,
		"Body", util.Truncate(p.Body, bodyWidth),
	)
}

// detailTable renders label/value pairs as a two-column table.
func detailTable(pairs ...string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(slate)).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return mutedStyle
			}
			return cellStyle
		})
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Row(pairs[i], pairs[i+1])
	}
	return t
}

func cacheTable(states []query.State, now time.Time) *table.Table {
	t := newTable("KEY", "STATUS", "FRESHNESS", "FETCHING", "OBSERVERS", "UPDATED")
	for _, s := range states {
		freshness := okStyle.Render("fresh")
		switch {
		case !s.HasData:
			freshness = "-"
		case s.IsStale(now):
			freshness = warnStyle.Render("stale")
		}
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = now.Sub(s.UpdatedAt).Truncate(time.Second).String() + " ago"
		}
		t.Row(
			s.Key.String(),
			statusLabel(s.Status),
			freshness,
			strconv.FormatBool(s.IsFetching),
			strconv.Itoa(s.Observers),
			updated,
		)
	}
	return t
}

func statusLabel(s query.Status) string {
	switch s {
	case query.StatusSuccess:
		return okStyle.Render(string(s))
	case query.StatusError:
		return errStyle.Render(string(s))
	default:
		return string(s)
	}
}

// componentRow is the JSON shape of one status line.
type componentRow struct {
	component.Description
	Health component.Health `json:"health"`
}

func statusTable(rows []componentRow) *table.Table {
	t := newTable("COMPONENT", "TYPE", "DETAILS", "HEALTH")
	for _, r := range rows {
		health := okStyle.Render(string(r.Health.Status))
		if r.Health.Status != component.StatusHealthy {
			health = errStyle.Render(string(r.Health.Status))
		}
		if r.Health.Message != "" {
			health += " " + r.Health.Message
		}
		t.Row(r.Name, r.Type, r.Details, health)
	}
	return t
}
