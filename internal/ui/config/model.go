package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/theme"
	"github.com/nhle/notification-inbox/internal/validate"
)

// ConfigMode represents the current state of the settings view.
type ConfigMode int

const (
	ModeView   ConfigMode = iota // Show the active settings
	ModeForm                     // Edit form
	ModeSaving                   // Writing the file
	ModeResult                   // Show save result
)

// ConfigDoneMsg signals the settings view should close.
type ConfigDoneMsg struct{}

// ConfigSavedMsg carries the configuration that was written.
type ConfigSavedMsg struct {
	Config model.AppConfig
}

// saveResultMsg is sent after the saver returns.
type saveResultMsg struct {
	cfg model.AppConfig
	err error
}

// Saver persists a configuration.
type Saver func(cfg *model.AppConfig) error

// formBindings keeps huh's Value() pointers stable across model copies.
type formBindings struct {
	apiURL       string
	pushURL      string
	syncInterval string
	latestCount  string
	logLevel     string
}

// Model is the settings view: the endpoints and display preferences in
// effect, plus a form to change and save them.
type Model struct {
	mode    ConfigMode
	cfg     model.AppConfig
	save    Saver
	form    *huh.Form
	fb      *formBindings
	spinner spinner.Model
	saveErr error

	keys          *keys.KeyMap
	width, height int
}

// New creates a settings view over cfg that writes through save.
func New(cfg model.AppConfig, save Saver, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeView,
		cfg:     cfg,
		save:    save,
		fb:      &formBindings{},
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init resets the view to the settings summary.
func (m *Model) Init() tea.Cmd {
	m.mode = ModeView
	m.saveErr = nil
	return nil
}

// Config returns the settings last saved or passed to New.
func (m Model) Config() model.AppConfig {
	return m.cfg
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case saveResultMsg:
		m.mode = ModeResult
		m.saveErr = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.cfg = msg.cfg
		saved := msg.cfg
		return m, func() tea.Msg { return ConfigSavedMsg{Config: saved} }

	case spinner.TickMsg:
		if m.mode == ModeSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeView:
			return m.handleViewKeys(msg)
		case ModeResult:
			if key.Matches(msg, m.keys.Back) || msg.String() == "enter" {
				m.mode = ModeView
			}
			return m, nil
		case ModeSaving:
			return m, nil
		case ModeForm:
			if key.Matches(msg, m.keys.Back) {
				m.mode = ModeView
				return m, nil
			}
		}
	}

	if m.mode == ModeForm && m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleViewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	case msg.String() == "e":
		m.fb.apiURL = m.cfg.API.BaseURL
		m.fb.pushURL = m.cfg.Push.URL
		m.fb.syncInterval = strconv.Itoa(m.cfg.Sync.IntervalSec)
		m.fb.latestCount = strconv.Itoa(m.cfg.Display.LatestCount)
		m.fb.logLevel = m.cfg.Logging.Level
		m.form = m.buildForm()
		m.mode = ModeForm
		return m, m.form.Init()
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		next, err := m.fromForm()
		if err != nil {
			m.mode = ModeResult
			m.saveErr = err
			return m, nil
		}
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.persist(next))
	case huh.StateAborted:
		m.mode = ModeView
		return m, nil
	}
	return m, cmd
}

// fromForm applies the form values to a copy of the current settings.
func (m Model) fromForm() (model.AppConfig, error) {
	next := m.cfg
	next.API.BaseURL = strings.TrimSpace(m.fb.apiURL)
	next.Push.URL = strings.TrimSpace(m.fb.pushURL)
	next.Logging.Level = m.fb.logLevel

	interval, err := strconv.Atoi(strings.TrimSpace(m.fb.syncInterval))
	if err != nil {
		return next, fmt.Errorf("sync interval must be a number of seconds")
	}
	next.Sync.IntervalSec = interval

	count, err := strconv.Atoi(strings.TrimSpace(m.fb.latestCount))
	if err != nil {
		return next, fmt.Errorf("latest count must be a number")
	}
	next.Display.LatestCount = count

	if err := next.Validate(); err != nil {
		return next, err
	}
	return next, nil
}

func (m Model) persist(cfg model.AppConfig) tea.Cmd {
	save := m.save
	return func() tea.Msg {
		if save == nil {
			return saveResultMsg{cfg: cfg}
		}
		return saveResultMsg{cfg: cfg, err: save(&cfg)}
	}
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API URL").
				Value(&m.fb.apiURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Push URL").
				Description("Websocket endpoint for live updates").
				Value(&m.fb.pushURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Reload interval (seconds)").
				Description("0 disables periodic reloads").
				Value(&m.fb.syncInterval).
				Validate(validateNumber("gte=0")),
			huh.NewInput().
				Title("Latest panel size").
				Value(&m.fb.latestCount).
				Validate(validateNumber("gte=1,lte=100")),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&m.fb.logLevel),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// View renders the settings view.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeForm:
		if m.form == nil {
			return ""
		}
		return style.Render(m.form.View())
	case ModeSaving:
		return style.Render(m.spinner.View() + " Saving settings...")
	case ModeResult:
		if m.saveErr != nil {
			return style.Render(theme.ErrorStyle.Render("Settings not saved") + "\n\n" +
				m.saveErr.Error() + "\n\n" + theme.HelpStyle.Render("enter/esc back"))
		}
		return style.Render(theme.SuccessStyle.Render("Settings saved") + "\n\n" +
			"Endpoint changes apply at the next sign-in.\n\n" +
			theme.HelpStyle.Render("enter/esc back"))
	default:
		return style.Render(m.viewSummary())
	}
}

func (m Model) viewSummary() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(20)

	interval := "disabled"
	if m.cfg.Sync.IntervalSec > 0 {
		interval = fmt.Sprintf("every %ds", m.cfg.Sync.IntervalSec)
	}

	rows := []string{
		titleStyle.Render("Settings"),
		label.Render("API URL") + m.cfg.API.BaseURL,
		label.Render("Push URL") + m.cfg.Push.URL,
		label.Render("Identity") + m.cfg.Identity.BaseURL,
		label.Render("Reload") + interval,
		label.Render("Latest panel") + strconv.Itoa(m.cfg.Display.LatestCount),
		label.Render("Log level") + m.cfg.Logging.Level,
		label.Render("Log file") + m.cfg.Logging.File,
		"",
		theme.HelpStyle.Render("e edit | esc back"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	if err := validate.Var(strings.TrimSpace(s), "url"); err != nil {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validateNumber(tag string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a whole number")
		}
		if err := validate.Var(n, tag); err != nil {
			return fmt.Errorf("out of range (%s)", tag)
		}
		return nil
	}
}
