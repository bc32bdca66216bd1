package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/updrive/updrive/internal/utils"
)

const (
	txtTokenPlaceholder = "paste your API token"
	txtTokenPrompt      = "Enter the API token from your drive's account page"
	txtInvalidToken     = "That token looks too short"
	txtHelp             = "Press 'Enter' to submit. 'Esc' or 'Ctrl+C' to quit."
)

var (
	focusedStyle     = green
	helpStyle        = gray
	errorTextStyle   = red
	errorHeaderStyle = red.Bold(true)
	placeholderStyle = gray
)

type LoginTUIOpts struct {
	ServerURL      string
	WatchDir       string
	ConfigPath     string
	Note           string // optional note to display to the user
	TokenValidator func(token string) bool
}

type loginModel struct {
	opts         *LoginTUIOpts
	tokenInput   textinput.Model
	errorMessage string
	token        string
	width        int
}

func newLoginModel(opts *LoginTUIOpts) loginModel {
	input := textinput.New()
	input.Placeholder = txtTokenPlaceholder
	input.Focus()
	input.CharLimit = 256
	input.Width = 64
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.PromptStyle = focusedStyle
	input.TextStyle = focusedStyle
	input.PlaceholderStyle = placeholderStyle

	return loginModel{
		opts:       opts,
		tokenInput: input,
	}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.token = ""
			return m, tea.Quit

		case tea.KeyEnter:
			entered := strings.TrimSpace(m.tokenInput.Value())
			if m.opts.TokenValidator != nil && !m.opts.TokenValidator(entered) {
				m.errorMessage = txtInvalidToken
				return m, nil
			}
			m.token = entered
			return m, tea.Quit

		default:
			// typing again clears the last error
			m.errorMessage = ""
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	var cmd tea.Cmd
	m.tokenInput, cmd = m.tokenInput.Update(msg)
	return m, cmd
}

func (m loginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(utils.UpDriveArt))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s%s\n", gray.Render("Server  "), green.Render(m.opts.ServerURL)))
	b.WriteString(fmt.Sprintf("%s%s\n", gray.Render("Watch   "), green.Render(m.opts.WatchDir)))
	b.WriteString(fmt.Sprintf("%s%s\n", gray.Render("Config  "), green.Render(m.opts.ConfigPath)))
	if m.opts.Note != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", yellow.Render(m.opts.Note)))
	}
	b.WriteString("\n")

	b.WriteString(txtTokenPrompt)
	b.WriteString("\n\n")
	b.WriteString(m.tokenInput.View())
	b.WriteString("\n")

	if m.errorMessage != "" {
		b.WriteString(fmt.Sprintf("\n%s %s\n",
			errorHeaderStyle.Render("ERROR:"),
			errorTextStyle.Render(m.errorMessage)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(txtHelp))
	b.WriteString("\n")

	return b.String()
}

// RunLoginTUI prompts for an API token and returns it.
func RunLoginTUI(opts LoginTUIOpts) (string, error) {
	program := tea.NewProgram(newLoginModel(&opts))

	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("login prompt failed: %w", err)
	}

	model, ok := final.(loginModel)
	if !ok || model.token == "" {
		return "", fmt.Errorf("login aborted")
	}
	return model.token, nil
}
