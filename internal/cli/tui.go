package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/lpatch/pkg/cargo"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// CrateListModel - Interactive crate selection
// =============================================================================

// CrateListModel is the bubbletea model for picking a crate out of a
// cloned repository when the requested name is not in it.
type CrateListModel struct {
	Requested string
	Root      string // Clone directory, for displaying relative paths
	Crates    []cargo.Crate
	Cursor    int
	Selected  *cargo.Crate
	Height    int
	Offset    int
}

// NewCrateListModel creates a new crate list model.
func NewCrateListModel(requested, root string, crates []cargo.Crate) CrateListModel {
	return CrateListModel{
		Requested: requested,
		Root:      root,
		Crates:    crates,
		Height:    15,
	}
}

func (m CrateListModel) Init() tea.Cmd {
	return nil
}

func (m CrateListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Crates)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Crates) == 0 {
				return m, tea.Quit
			}
			c := m.Crates[m.Cursor]
			m.Selected = &c
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m CrateListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Crate"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%q is not in this repository. Pick the crate to patch instead.", m.Requested)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Crates))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := m.Crates[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, c.Name, m.relPath(c.Path)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Crate", "Path").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col == 2 {
				return listDimStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Crates))))

	return b.String()
}

func (m CrateListModel) relPath(path string) string {
	rel, err := filepath.Rel(m.Root, path)
	if err != nil || rel == "." {
		return "."
	}
	return filepath.ToSlash(rel)
}

// =============================================================================
// Chooser
// =============================================================================

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// pickCrate runs the crate picker and returns the selection.
func pickCrate(requested string, crates []cargo.Crate) (cargo.Crate, bool) {
	final, err := tea.NewProgram(NewCrateListModel(requested, commonDir(crates), crates)).Run()
	if err != nil {
		return cargo.Crate{}, false
	}
	m, ok := final.(CrateListModel)
	if !ok || m.Selected == nil {
		return cargo.Crate{}, false
	}
	return *m.Selected, true
}

// commonDir returns the deepest directory containing every crate.
func commonDir(crates []cargo.Crate) string {
	if len(crates) == 0 {
		return ""
	}
	root := crates[0].Path
	for _, c := range crates[1:] {
		for {
			rel, err := filepath.Rel(root, c.Path)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				break
			}
			parent := filepath.Dir(root)
			if parent == root {
				return root
			}
			root = parent
		}
	}
	return root
}
