package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type menuItem struct {
	label string
	key   string
	// checked renders a [x]/[ ] box when non-nil.
	checked *bool
}

// menu is a vertical list with a cursor. Selection is reported by key.
type menu struct {
	title  string
	items  []menuItem
	cursor int
}

func newMenu(title string, items ...menuItem) menu {
	return menu{title: title, items: items}
}

func (m menu) selected() (menuItem, bool) {
	if len(m.items) == 0 {
		return menuItem{}, false
	}
	return m.items[m.cursor], true
}

// update moves the cursor and reports whether enter was pressed.
func (m menu) update(msg tea.KeyMsg) (menu, bool) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		return m, true
	}
	return m, false
}

func (m menu) view(s Styles) string {
	var sb strings.Builder
	if m.title != "" {
		sb.WriteString(s.Title.Render(m.title))
		sb.WriteString("\n")
	}
	for i, it := range m.items {
		label := it.label
		if it.checked != nil {
			if *it.checked {
				label = "[x] " + label
			} else {
				label = "[ ] " + label
			}
		}
		if i == m.cursor {
			sb.WriteString(s.Selected.Render("> " + label))
		} else {
			sb.WriteString(s.Item.Render("  " + label))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func boolPtr(b bool) *bool { return &b }
