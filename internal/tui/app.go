// internal/tui/app.go
//
// This is the interactive module picker for composer.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the current base, module selection and last report
// 2. Update: key presses toggle modules and trigger validate/merge commands
// 3. View: a module list on the left, the validation report and preview on the right
//
// Every change to the selection re-runs validation and the preview, so the
// report always matches what enter would merge.

package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/composer"
	"github.com/kingrea/contract-composer/internal/config"
	"github.com/kingrea/contract-composer/internal/merge"
	"github.com/kingrea/contract-composer/internal/output"
	"github.com/kingrea/contract-composer/internal/validation"
)

type focus int

const (
	focusModules focus = iota
	focusReport
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	validStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	paneStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	activeStyle  = paneStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
)

// reportMsg carries a fresh validation run and preview for the selection it
// was computed from.
type reportMsg struct {
	selection string
	result    validation.Result
	preview   string
	size      int
	err       error
}

// mergeFinishedMsg reports the outcome of writing the selection to disk.
type mergeFinishedMsg struct {
	manifest output.Manifest
	dir      string
	err      error
}

// moduleItem implements list.Item for one catalog module.
type moduleItem struct {
	module   catalog.Module
	selected bool
}

func (i moduleItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.module.Name)
}

func (i moduleItem) Description() string {
	parts := []string{string(i.module.Category)}
	if i.module.Version != "" {
		parts = append(parts, "v"+i.module.Version)
	}
	if desc := strings.TrimSpace(i.module.Description); desc != "" {
		parts = append(parts, desc)
	}
	return strings.Join(parts, " · ")
}

func (i moduleItem) FilterValue() string { return i.module.Name }

// App is the picker model.
type App struct {
	svc     *composer.Service
	project string
	params  map[string]string

	bases    []string
	base     string
	selected []string

	modules list.Model
	report  viewport.Model
	focus   focus

	lastResult validation.Result
	hasResult  bool
	suggested  []string
	reportText string
	statusMsg  string
	err        error

	width  int
	height int
}

// NewApp builds the picker seeded from req, falling back to the saved
// selection and then to the first base in the catalog.
func NewApp(svc *composer.Service, req composer.Request) *App {
	req = svc.Normalize(req)
	cat := svc.Catalog()
	bases := cat.BaseNames()
	base := req.Base
	if base == "" && len(bases) > 0 {
		base = bases[0]
	}
	modules := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	modules.Title = "Modules"
	modules.SetShowStatusBar(false)
	modules.SetFilteringEnabled(false)

	app := &App{
		svc:      svc,
		project:  req.Project,
		params:   req.Params,
		bases:    bases,
		base:     base,
		selected: append([]string(nil), req.Modules...),
		modules:  modules,
		report:   viewport.New(0, 0),
		focus:    focusModules,
	}
	app.refreshModuleList()
	return app
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.validateCmd()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case reportMsg:
		if msg.selection != a.selectionKey() {
			// A newer toggle already queued its own run.
			return a, nil
		}
		a.applyReport(msg)
		return a, nil

	case mergeFinishedMsg:
		if msg.err != nil {
			a.err = msg.err
			a.statusMsg = "Merge refused"
			if errors.Is(msg.err, merge.ErrValidation) {
				a.statusMsg = "Merge refused: resolve the errors first"
			}
			return a, nil
		}
		a.err = nil
		a.statusMsg = fmt.Sprintf("Wrote %d file(s), %s, to %s", len(msg.manifest.Files), humanize.Bytes(msg.manifest.TotalSize()), msg.dir)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "tab":
			if a.focus == focusModules {
				a.focus = focusReport
			} else {
				a.focus = focusModules
			}
			return a, nil
		case " ", "space":
			if a.focus == focusModules {
				return a, a.toggleSelected()
			}
		case "b":
			return a, a.cycleBase()
		case "s":
			a.saveSelection()
			return a, nil
		case "enter":
			a.statusMsg = "Merging..."
			return a, a.mergeCmd()
		case "esc":
			a.statusMsg = ""
			a.err = nil
			return a, nil
		}
	}

	var cmd tea.Cmd
	if a.focus == focusModules {
		a.modules, cmd = a.modules.Update(msg)
	} else {
		a.report, cmd = a.report.Update(msg)
	}
	return a, cmd
}

// Selection returns the module names currently toggled on, in toggle order.
func (a *App) Selection() []string {
	return append([]string(nil), a.selected...)
}

func (a *App) request() composer.Request {
	return composer.Request{
		Project: a.project,
		Base:    a.base,
		Modules: a.Selection(),
		Params:  a.params,
	}
}

func (a *App) selectionKey() string {
	return a.base + "|" + strings.Join(a.selected, ",")
}

func (a *App) toggleSelected() tea.Cmd {
	item, ok := a.modules.SelectedItem().(moduleItem)
	if !ok {
		return nil
	}
	name := item.module.Name
	if idx := indexOf(a.selected, name); idx >= 0 {
		a.selected = append(a.selected[:idx], a.selected[idx+1:]...)
	} else {
		a.selected = append(a.selected, name)
	}
	a.refreshModuleList()
	return a.validateCmd()
}

func (a *App) cycleBase() tea.Cmd {
	if len(a.bases) < 2 {
		return nil
	}
	idx := indexOf(a.bases, a.base)
	a.base = a.bases[(idx+1)%len(a.bases)]
	a.statusMsg = fmt.Sprintf("Base: %s", a.base)
	a.refreshModuleList()
	return a.validateCmd()
}

func (a *App) saveSelection() {
	sel := config.Selection{Name: a.project, Base: a.base, Modules: a.Selection(), Params: a.params}
	if err := a.svc.Config().SetDefaultSelection(sel); err != nil {
		a.err = err
		a.statusMsg = "Save failed"
		return
	}
	a.err = nil
	a.statusMsg = "Selection saved to " + config.ComposerDir + "/config.yaml"
}

// refreshModuleList lists modules compatible with the current base, keeping
// the cursor where it was.
func (a *App) refreshModuleList() {
	cat := a.svc.Catalog()
	names := cat.ModuleNames()
	sort.Strings(names)
	items := make([]list.Item, 0, len(names))
	for _, name := range names {
		mod, err := cat.Module(name)
		if err != nil {
			continue
		}
		if a.base != "" && !mod.CompatibleWithBase(a.base) {
			continue
		}
		items = append(items, moduleItem{module: mod, selected: indexOf(a.selected, name) >= 0})
	}
	cursor := a.modules.Index()
	a.modules.SetItems(items)
	if cursor >= 0 && cursor < len(items) {
		a.modules.Select(cursor)
	}
}

func (a *App) validateCmd() tea.Cmd {
	req := a.request()
	key := a.selectionKey()
	svc := a.svc
	return func() tea.Msg {
		msg := reportMsg{selection: key}
		result, err := svc.Validate(req)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.result = result
		if base, mods, err := svc.Selection(svc.Normalize(req)); err == nil {
			msg.size = validation.EstimateSize(base, mods)
		}
		msg.preview, msg.err = svc.Preview(req)
		return msg
	}
}

func (a *App) mergeCmd() tea.Cmd {
	req := a.request()
	svc := a.svc
	return func() tea.Msg {
		dir := svc.Config().OutputDir(svc.Normalize(req).Project)
		_, manifest, err := svc.Write(req, dir)
		return mergeFinishedMsg{manifest: manifest, dir: dir, err: err}
	}
}

func (a *App) applyReport(msg reportMsg) {
	if msg.err != nil {
		a.err = msg.err
		a.hasResult = false
		a.reportText = msg.err.Error()
		a.report.SetContent(a.reportText)
		return
	}
	a.err = nil
	a.lastResult = msg.result
	a.hasResult = true
	a.suggested = a.suggestions()
	a.reportText = renderReport(msg, a.suggested)
	a.report.SetContent(a.reportText)
	a.report.GotoTop()
}

// suggestions lists unselected modules compatible with the base that enhance
// something already selected.
func (a *App) suggestions() []string {
	cat := a.svc.Catalog()
	seen := map[string]struct{}{}
	var out []string
	for _, name := range a.selected {
		for _, mod := range cat.Enhancing(name) {
			if indexOf(a.selected, mod.Name) >= 0 {
				continue
			}
			if a.base != "" && !mod.CompatibleWithBase(a.base) {
				continue
			}
			if _, ok := seen[mod.Name]; ok {
				continue
			}
			seen[mod.Name] = struct{}{}
			out = append(out, fmt.Sprintf("%s (enhances %s)", mod.Name, name))
		}
	}
	return out
}

func renderReport(msg reportMsg, suggested []string) string {
	var b strings.Builder
	if msg.result.Valid {
		b.WriteString(validStyle.Render("✓ valid"))
	} else {
		b.WriteString(invalidStyle.Render(fmt.Sprintf("✗ %d error(s)", len(msg.result.Errors))))
	}
	if n := len(msg.result.Warnings); n > 0 {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d warning(s)", n)))
	}
	if msg.size > 0 {
		fmt.Fprintf(&b, "  ~%s estimated", humanize.Bytes(uint64(msg.size)))
	}
	b.WriteString("\n\n")
	if len(suggested) > 0 {
		b.WriteString(titleStyle.Render("Suggested"))
		b.WriteString("\n")
		for _, line := range suggested {
			b.WriteString("+ " + line + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(validation.Format(msg.result))
	b.WriteString("\n\n")
	b.WriteString(msg.preview)
	return b.String()
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	left, right := a.paneWidths()
	bodyHeight := max(5, height-8)
	a.modules.SetSize(max(20, left-4), bodyHeight)
	a.report.Width = max(20, right-4)
	a.report.Height = bodyHeight
}

func (a *App) paneWidths() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	left := max(32, width/3)
	return left, max(20, width-left-2)
}

// View renders the current state to a string.
func (a *App) View() string {
	left, right := a.paneWidths()
	header := headerStyle.Render(fmt.Sprintf("⬡ COMPOSER · %s", a.baseLabel()))

	listPane, reportPane := paneStyle, paneStyle
	if a.focus == focusModules {
		listPane = activeStyle
	} else {
		reportPane = activeStyle
	}
	listView := a.modules.View()
	if len(a.modules.Items()) == 0 {
		listView = titleStyle.Render("Modules") + "\n\nNo modules are compatible with this base."
	}
	reportView := a.report.View()
	if !a.hasResult && a.err == nil {
		reportView = "Validating..."
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Width(left).Render(listView),
		reportPane.Width(right).Render(reportView),
	)

	status := a.statusMsg
	if a.err != nil {
		status = invalidStyle.Render(strings.TrimSpace(status + " " + a.err.Error()))
	}
	hint := hintStyle.Render("space → toggle    b → next base    s → save    enter → merge    tab → switch pane    q → quit")
	return strings.Join([]string{header, body, status, hint}, "\n")
}

func (a *App) baseLabel() string {
	if a.base == "" {
		return "no base template"
	}
	base, err := a.svc.Catalog().Base(a.base)
	if err != nil {
		return a.base
	}
	if base.Version == "" {
		return base.Name
	}
	return fmt.Sprintf("%s %s", base.Name, base.Version)
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}
