package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

var (
	pickerTitleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	pickerSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	pickerHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PickerScorer asks a human to grade in the terminal.
type PickerScorer struct {
	in    io.Reader
	out   io.Writer
	width int
}

// NewPickerScorer reads keys from in and draws to out. Nil values use the terminal.
func NewPickerScorer(in io.Reader, out io.Writer) *PickerScorer {
	return &PickerScorer{in: in, out: out, width: 100}
}

func (p *PickerScorer) Select(ctx context.Context, prompt string, options []Option) (Option, error) {
	if len(options) == 0 {
		return Option{}, fmt.Errorf("no options to select from")
	}
	var opts []tea.ProgramOption
	opts = append(opts, tea.WithContext(ctx))
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	final, err := tea.NewProgram(newPickerModel(prompt, options, p.width), opts...).Run()
	if err != nil {
		return Option{}, fmt.Errorf("score picker failed: %w", err)
	}
	m := final.(pickerModel)
	if m.cancelled {
		return Option{}, ErrSelectionCancelled
	}
	return options[m.cursor], nil
}

// pickerModel is a single-choice list.
type pickerModel struct {
	prompt    string
	options   []Option
	cursor    int
	width     int
	done      bool
	cancelled bool
}

func newPickerModel(prompt string, options []Option, width int) pickerModel {
	return pickerModel{prompt: prompt, options: options, width: width}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.done = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		default:
			// digits pick directly
			if key := msg.String(); len(key) == 1 && key[0] >= '1' && int(key[0]-'0') <= len(m.options) {
				m.cursor = int(key[0]-'0') - 1
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(wordwrap.String(m.prompt, max(m.width-2, 20)))
	sb.WriteString("\n\n")
	sb.WriteString(pickerTitleStyle.Render("Select the score for the given response."))
	sb.WriteString("\n")
	for i, o := range m.options {
		line := fmt.Sprintf("%d. [%.1f] %s", i+1, o.Score, o.Description)
		if i == m.cursor {
			sb.WriteString(pickerSelectedStyle.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(pickerHelpStyle.Render("up/down to move, enter or a number to pick, esc to cancel"))
	sb.WriteString("\n")
	return sb.String()
}
