package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/vibe/internal/shared"
)

// authForm is the login/register form.
type authForm struct {
	username textinput.Model
	password textinput.Model
	register bool
	busy     bool
	err      string
	notice   string
}

func newAuthForm() authForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 20
	username.Prompt = "user › "
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 64
	password.Prompt = "pass › "

	return authForm{username: username, password: password}
}

// toggleMode switches between login and register, clearing any message.
func (f *authForm) toggleMode() {
	f.register = !f.register
	f.err = ""
	f.notice = ""
}

func (f *authForm) focusNext() {
	if f.username.Focused() {
		f.username.Blur()
		f.password.Focus()
		return
	}
	f.password.Blur()
	f.username.Focus()
}

func (f *authForm) reset() {
	f.username.Reset()
	f.password.Reset()
	f.busy = false
	if !f.username.Focused() {
		f.focusNext()
	}
}

// credentials returns the trimmed username and the raw password.
func (f authForm) credentials() (string, string) {
	return strings.TrimSpace(f.username.Value()), f.password.Value()
}

// validate checks the form before any request is made. Registration applies the account rules.
func (f authForm) validate() error {
	username, password := f.credentials()
	if !f.register {
		if username == "" || password == "" {
			return fmt.Errorf("%w: username and password are required", shared.ErrInvalidInput)
		}
		return nil
	}
	if err := shared.ValidateUsername(username); err != nil {
		return err
	}
	return shared.ValidatePassword(password)
}

// update handles a key press. submit is true when the form should be sent.
func (f *authForm) update(msg tea.KeyMsg, keys keyMap) (submit bool, cmd tea.Cmd) {
	if f.busy {
		return false, nil
	}

	switch {
	case key.Matches(msg, keys.switchTo):
		f.toggleMode()
		return false, nil
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp, msg.Type == tea.KeyDown:
		f.focusNext()
		return false, nil
	case msg.Type == tea.KeyEnter:
		if f.username.Focused() {
			f.focusNext()
			return false, nil
		}
		if err := f.validate(); err != nil {
			f.err = describeError(err)
			return false, nil
		}
		f.err = ""
		f.busy = true
		return true, nil
	}

	if f.username.Focused() {
		f.username, cmd = f.username.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return false, cmd
}

// describeError strips the sentinel prefix from validation errors for display.
func describeError(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidUsername):
		return shared.ErrInvalidUsername.Error()
	case errors.Is(err, shared.ErrInvalidPassword):
		return shared.ErrInvalidPassword.Error()
	case errors.Is(err, shared.ErrAuthFailed):
		return "Invalid username or password"
	}
	return err.Error()
}

func strengthMeter(password string) string {
	score := shared.PasswordStrength(password)
	labels := []string{"", "weak", "fair", "strong"}
	bar := strings.Repeat("■", score) + strings.Repeat("□", 3-score)
	return lipgloss.NewStyle().Foreground(strengthColors[score]).Render(bar + " " + labels[score])
}

func (f authForm) view(keys keyMap) string {
	title, action, other := "Welcome back", "log in", "register"
	if f.register {
		title, action, other = "Create an account", "register", "log in"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("vibe · " + title))
	b.WriteString("\n")
	b.WriteString(f.username.View() + "\n")
	b.WriteString(f.password.View() + "\n")

	if f.register {
		b.WriteString("       " + strengthMeter(f.password.Value()) + "\n")
	}

	b.WriteString("\n")
	switch {
	case f.busy:
		b.WriteString(styles.dim.Render("Working...") + "\n")
	case f.err != "":
		b.WriteString(styles.err.Render(f.err) + "\n")
	case f.notice != "":
		b.WriteString(styles.warn.Render(f.notice) + "\n")
	}

	b.WriteString(styles.help.Render(fmt.Sprintf("enter: %s • tab: next field • %s: %s • %s: quit",
		action, keys.switchTo.Help().Key, other, "ctrl+c")))
	return styles.panel.Render(b.String())
}
