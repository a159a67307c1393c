package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/leofalp/polprofile/profile"
)

const (
	emptyField    = "—"
	fallbackTitle = "Profile"
	panelWidth    = 78
)

// profileView renders a profile as a header panel holding the title and
// current status, followed by a biography panel.
type profileView struct {
	markdown *glamour.TermRenderer

	header    lipgloss.Style
	label     lipgloss.Style
	metaPanel lipgloss.Style
	bioPanel  lipgloss.Style
}

// newProfileView binds styles to w, so colours are dropped when w is not a
// terminal. Interactive views also render the biography as markdown.
func newProfileView(w io.Writer, interactive bool) *profileView {
	renderer := lipgloss.NewRenderer(w)
	view := &profileView{
		header: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		label:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		metaPanel: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("2")).
			Padding(0, 1),
		bioPanel: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("4")).
			Padding(0, 1).
			Width(panelWidth),
	}

	if interactive {
		markdown, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(panelWidth-4),
		)
		if err == nil {
			view.markdown = markdown
		}
	}
	return view
}

func (v *profileView) Render(record *profile.ProfileRecord) string {
	title := strings.TrimSpace(record.Title)
	headerText := title
	if headerText == "" {
		headerText = fallbackTitle
	}

	rows := lipgloss.JoinVertical(lipgloss.Left,
		v.label.Render("Title:")+" "+orDash(title),
		v.label.Render("Current Status:")+" "+orDash(record.CurrentStatus),
	)
	meta := v.metaPanel.Render(lipgloss.JoinVertical(lipgloss.Left, v.header.Render(headerText), "", rows))
	bio := v.bioPanel.Render(lipgloss.JoinVertical(lipgloss.Left, v.label.Render("Biography"), "", v.biography(record.Biography)))

	return meta + "\n" + bio + "\n"
}

func (v *profileView) biography(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return emptyField
	}
	if v.markdown == nil {
		return text
	}
	rendered, err := v.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

// profileNotes lists caveats about a rendered profile for stderr.
func profileNotes(result *profile.Result) []string {
	var notes []string
	if result.Method == profile.MethodPlainText {
		notes = append(notes, fmt.Sprintf("profile in %s was plain text and is shown as the biography", result.SourceKey))
	}
	if result.Invalid != nil {
		notes = append(notes, "profile failed validation: "+strings.ReplaceAll(result.Invalid.Error(), "\n", "; "))
	}
	return notes
}

func orDash(value string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return emptyField
}
