package teaui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/session"
	"tableflip.dev/journey/pkg/timeutil"
)

type mode int

const (
	modeNormal mode = iota
	modeInsert
	modeCommand
	modeHelp
	modeConfirm
)

type action int

const (
	actionNone action = iota
	actionAdd
	actionEdit
	actionName
)

// step of the two-field moment form
type step int

const (
	stepTitle step = iota
	stepDescription
)

const normalHelp = "o add, i edit, d delete, t type, N name, ? help"

// recordItem is one row of the moments or journal list.
type recordItem struct {
	id   string
	line string
	desc string
	mine bool
}

func (r recordItem) Title() string       { return r.line }
func (r recordItem) Description() string { return r.desc }
func (r recordItem) FilterValue() string { return r.line }

// messages
type changedMsg struct{}

// refreshMsg redraws without waiting on the change channel again.
type refreshMsg struct{}

type doneMsg struct {
	status string
	err    error
}

// Model is the journey UI. Writes run as commands; the journey's OnChange
// hook feeds changes back in through a channel.
type Model struct {
	j       *journey.Journey
	ctx     context.Context
	log     *zap.Logger
	changes <-chan struct{}

	mode   mode
	action action
	step   step

	// form is the moment being added or edited.
	form        record.MomentForm
	editID      string
	pendingType record.MomentType
	confirmID   string
	askedName   bool

	list  list.Model
	input textinput.Model

	status string

	termWidth  int
	termHeight int
}

// New builds the model. changes may be nil when the caller drives
// refreshes itself.
func New(ctx context.Context, j *journey.Journey, changes <-chan struct{}, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	d.SetSpacing(0)

	l := list.New([]list.Item{}, d, 80, 20)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Prompt = ""
	ti.Styles.Cursor.Color = lipgloss.Color("218")
	ti.Styles.Cursor.Shape = tea.CursorUnderline

	m := Model{
		j:           j,
		ctx:         ctx,
		log:         log,
		changes:     changes,
		mode:        modeNormal,
		list:        l,
		input:       ti,
		status:      normalHelp,
		pendingType: record.DefaultMomentType,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), func() tea.Msg { return refreshMsg{} })
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// refresh rebuilds the list from the mounted view's snapshot.
func (m *Model) refresh() {
	var items []list.Item
	switch m.j.Mounted() {
	case router.Moments:
		v := m.j.Moments()
		for _, r := range v.Records() {
			g := r.Glyph()
			symbol := lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color)).Render(g.Symbol)
			items = append(items, recordItem{
				id:   r.ID,
				line: symbol + " " + r.Title,
				desc: byline(r.CreatorName, r.CreatedAt, r.Description),
				mine: v.Commands.CanModify(r),
			})
		}
	case router.Journal:
		v := m.j.Journal()
		for _, r := range v.Records() {
			items = append(items, recordItem{
				id:   r.ID,
				line: r.Text,
				desc: byline(r.CreatorName, r.CreatedAt, ""),
				mine: v.Commands.CanModify(r),
			})
		}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = m.j.Mounted().Title()
}

func byline(name string, at record.Timestamp, desc string) string {
	s := fmt.Sprintf("%s · %s", name, timeutil.Ago(at.Time, time.Now()))
	if desc != "" {
		s += " · " + desc
	}
	return s
}

func (m *Model) promptNameIfNeeded() tea.Cmd {
	snap := m.j.Session().Snapshot()
	if !snap.NeedsName() {
		m.askedName = false
		return nil
	}
	if m.askedName || m.mode != modeNormal {
		return nil
	}
	m.askedName = true
	return m.beginInput(actionName, "What should we call you?", "")
}

// Update handles messages and keybindings
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	skipListRouting := false

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
		m.applySizes()
	case changedMsg:
		m.refresh()
		cmds = append(cmds, m.waitForChange(), m.promptNameIfNeeded())
	case refreshMsg:
		m.refresh()
		cmds = append(cmds, m.promptNameIfNeeded())
	case doneMsg:
		if msg.err != nil {
			m.log.Warn("operation failed", zap.Error(msg.err))
			m.status = m.errText(msg.err)
		} else {
			m.status = msg.status
		}
		m.refresh()
	case tea.KeyPressMsg:
		skipListRouting = true
		switch m.mode {
		case modeHelp:
			if key := msg.String(); key == "q" || key == "esc" || key == "?" {
				m.mode = modeNormal
			}
		case modeConfirm:
			id := m.confirmID
			m.confirmID = ""
			m.mode = modeNormal
			if key := msg.String(); key == "y" || key == "Y" {
				cmds = append(cmds, m.deleteCmd(id))
			} else {
				m.status = "Nothing deleted."
			}
		case modeInsert:
			cmds = append(cmds, m.updateInsert(msg))
		case modeCommand:
			cmds = append(cmds, m.updateCommand(msg))
		case modeNormal:
			var cmd tea.Cmd
			cmd, skipListRouting = m.updateNormal(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.mode == modeNormal && !skipListRouting {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) updateNormal(msg tea.KeyPressMsg) (tea.Cmd, bool) {
	switch key := msg.String(); key {
	case "1", "2", "3":
		return m.selectView(router.Views()[int(key[0]-'1')]), true
	case "tab":
		return m.selectView(m.nextView(1)), true
	case "shift+tab":
		return m.selectView(m.nextView(-1)), true
	case ":":
		m.mode = modeCommand
		m.input.Reset()
		m.input.Placeholder = "command"
		m.status = "COMMAND: type :q or :exit to quit"
		return tea.Batch(m.input.Focus(), textinput.Blink), true
	case "?":
		m.mode = modeHelp
		return nil, true
	case "q":
		m.status = "Use :q or :exit to quit"
		return nil, true
	case "j":
		m.list.CursorDown()
		return nil, true
	case "k":
		m.list.CursorUp()
		return nil, true
	case "g":
		m.list.Select(0)
		return nil, true
	case "G":
		m.list.Select(len(m.list.Items()) - 1)
		return nil, true
	case "N":
		return m.beginInput(actionName, "Display name", m.j.Session().Snapshot().DisplayName), true
	case "o", "O":
		return m.beginAdd(), true
	case "i":
		return m.beginEdit(), true
	case "d":
		m.beginDelete()
		return nil, true
	case "t":
		if m.j.Mounted() == router.Moments {
			m.pendingType = m.pendingType.Next()
			m.status = fmt.Sprintf("New moments: %s %s", m.pendingType.Glyph().Symbol, m.pendingType)
		}
		return nil, true
	case "T":
		return m.cycleSelectedType(), true
	}
	return nil, false
}

func (m *Model) nextView(delta int) router.View {
	views := router.Views()
	cur := 0
	for i, v := range views {
		if v == m.j.Mounted() {
			cur = i
		}
	}
	return views[(cur+delta+len(views))%len(views)]
}

func (m *Model) selectView(v router.View) tea.Cmd {
	if v == m.j.Mounted() {
		return nil
	}
	if err := m.j.Select(v); err != nil {
		m.status = err.Error()
		return nil
	}
	m.list.ResetSelected()
	m.refresh()
	m.status = normalHelp
	return nil
}

func (m *Model) selected() (recordItem, bool) {
	if len(m.list.Items()) == 0 {
		return recordItem{}, false
	}
	it, ok := m.list.SelectedItem().(recordItem)
	return it, ok
}

func (m *Model) beginInput(a action, placeholder, value string) tea.Cmd {
	m.mode = modeInsert
	m.action = a
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

// beginAdd opens the add form, restoring a draft left by a failed save.
func (m *Model) beginAdd() tea.Cmd {
	m.editID = ""
	switch m.j.Mounted() {
	case router.Moments:
		m.form = record.MomentForm{Type: m.pendingType}
		if d := m.j.Moments().Commands.Draft(); strings.TrimSpace(d.Title+d.Description) != "" {
			m.form = d
		}
		m.step = stepTitle
		return m.beginInput(actionAdd, "Moment title", m.form.Title)
	case router.Journal:
		return m.beginInput(actionAdd, "What happened today?", m.j.Journal().Commands.Draft().Text)
	default:
		text := m.j.PurposeText()
		if d := m.j.Purpose().Commands.Draft(); strings.TrimSpace(d.Text) != "" {
			text = d.Text
		}
		return m.beginInput(actionAdd, "Our purpose", text)
	}
}

func (m *Model) beginEdit() tea.Cmd {
	switch m.j.Mounted() {
	case router.Purpose:
		return m.beginAdd()
	case router.Moments:
		it, ok := m.selected()
		if !ok {
			return nil
		}
		mo, found := m.j.Moments().Get(it.id)
		if !found || !it.mine {
			m.status = crud.Message("moment", crud.ErrPermissionDenied)
			return nil
		}
		m.editID = it.id
		m.form = record.FormFromMoment(mo)
		if c := m.j.Moments().Commands; c.EditingID() == it.id {
			m.form = c.EditForm()
		}
		m.step = stepTitle
		return m.beginInput(actionEdit, "Moment title", m.form.Title)
	default:
		it, ok := m.selected()
		if !ok {
			return nil
		}
		e, found := m.j.Journal().Get(it.id)
		if !found || !it.mine {
			m.status = crud.Message("journal entry", crud.ErrPermissionDenied)
			return nil
		}
		m.editID = it.id
		text := e.Text
		if c := m.j.Journal().Commands; c.EditingID() == it.id {
			text = c.EditForm().Text
		}
		return m.beginInput(actionEdit, "Journal entry", text)
	}
}

func (m *Model) beginDelete() {
	noun := "moment"
	switch m.j.Mounted() {
	case router.Purpose:
		m.status = crud.Message("purpose", crud.ErrImmutable)
		return
	case router.Journal:
		noun = "journal entry"
	}
	it, ok := m.selected()
	if !ok {
		return
	}
	if !it.mine {
		m.status = crud.Message(noun, crud.ErrPermissionDenied)
		return
	}
	m.mode = modeConfirm
	m.confirmID = it.id
	m.status = fmt.Sprintf("Delete this %s? (y/n)", noun)
}

func (m *Model) cycleSelectedType() tea.Cmd {
	if m.j.Mounted() != router.Moments {
		return nil
	}
	it, ok := m.selected()
	if !ok {
		return nil
	}
	mo, found := m.j.Moments().Get(it.id)
	if !found || !it.mine {
		m.status = crud.Message("moment", crud.ErrPermissionDenied)
		return nil
	}
	f := record.FormFromMoment(mo)
	f.Type = f.Type.Next()
	return m.updateMomentCmd(it.id, f, "Moment is now a "+f.Type.String())
}

func (m *Model) updateInsert(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		value := m.input.Value()
		if m.action != actionName && m.j.Mounted() == router.Moments && m.step == stepTitle {
			m.form.Title = value
			m.step = stepDescription
			return m.beginInput(m.action, "Description (optional)", m.form.Description)
		}
		cmd := m.submit(value)
		m.endInput()
		return cmd
	case "esc":
		prev := m.action
		m.endInput()
		switch prev {
		case actionAdd:
			m.status = "Add cancelled"
		case actionEdit:
			m.status = "Edit cancelled"
		case actionName:
			m.status = "Press N to set your name"
		}
		return nil
	case "ctrl+t":
		if m.j.Mounted() == router.Moments && m.action != actionName {
			m.form.Type = m.form.Type.Next()
			m.status = fmt.Sprintf("Type: %s %s", m.form.Type.Glyph().Symbol, m.form.Type)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) endInput() {
	m.mode = modeNormal
	m.action = actionNone
	m.step = stepTitle
	m.input.Reset()
	m.input.Blur()
}

func (m *Model) submit(value string) tea.Cmd {
	if m.action == actionName {
		j := m.j
		return func() tea.Msg {
			return doneMsg{status: "Name saved", err: j.SubmitName(value)}
		}
	}
	switch m.j.Mounted() {
	case router.Moments:
		f := m.form
		f.Description = value
		if m.action == actionEdit {
			return m.updateMomentCmd(m.editID, f, "Moment saved")
		}
		c, ctx := m.j.Moments().Commands, m.ctx
		c.SetDraft(f)
		return func() tea.Msg {
			return doneMsg{status: "Moment added", err: c.Create(ctx)}
		}
	case router.Journal:
		c, ctx := m.j.Journal().Commands, m.ctx
		f := record.JournalForm{Text: value}
		if m.action == actionEdit {
			c.BeginEdit(m.editID, f)
			return func() tea.Msg {
				return doneMsg{status: "Entry saved", err: c.Update(ctx)}
			}
		}
		c.SetDraft(f)
		return func() tea.Msg {
			return doneMsg{status: "Entry added", err: c.Create(ctx)}
		}
	default:
		c, ctx := m.j.Purpose().Commands, m.ctx
		c.SetDraft(record.PurposeForm{Text: value})
		return func() tea.Msg {
			return doneMsg{status: "Purpose saved", err: c.Create(ctx)}
		}
	}
}

func (m *Model) updateMomentCmd(id string, f record.MomentForm, status string) tea.Cmd {
	c, ctx := m.j.Moments().Commands, m.ctx
	c.BeginEdit(id, f)
	return func() tea.Msg {
		return doneMsg{status: status, err: c.Update(ctx)}
	}
}

func (m *Model) deleteCmd(id string) tea.Cmd {
	ctx := m.ctx
	switch m.j.Mounted() {
	case router.Moments:
		c := m.j.Moments().Commands
		return func() tea.Msg { return doneMsg{status: "Moment deleted", err: c.Delete(ctx, id)} }
	case router.Journal:
		c := m.j.Journal().Commands
		return func() tea.Msg { return doneMsg{status: "Entry deleted", err: c.Delete(ctx, id)} }
	}
	return nil
}

func (m *Model) updateCommand(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		input := strings.TrimSpace(m.input.Value())
		m.endInput()
		switch input {
		case "q", "quit", "exit":
			return tea.Quit
		case "":
		case "moments", "journal", "purpose":
			v, _ := router.Parse(input)
			return m.selectView(v)
		case "signout":
			if err := m.j.SignOut(m.ctx); err != nil {
				m.status = err.Error()
			}
		default:
			m.status = fmt.Sprintf("Unknown command: %s", input)
		}
		return nil
	case "esc":
		m.endInput()
		m.status = "Command cancelled"
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) errText(err error) string {
	noun := "moment"
	switch m.j.Mounted() {
	case router.Journal:
		noun = "journal entry"
	case router.Purpose:
		noun = "purpose"
	}
	switch {
	case errors.Is(err, session.ErrEmptyName):
		return "Please enter a name."
	case errors.Is(err, session.ErrNotAuthenticated):
		return "You need to be signed in."
	case errors.Is(err, crud.ErrInFlight):
		return "Still saving, try again in a moment."
	}
	return crud.Message(noun, err)
}

// viewErr is the mounted view's inline error.
func (m Model) viewErr() string {
	switch m.j.Mounted() {
	case router.Journal:
		return m.j.Journal().ErrMessage()
	case router.Purpose:
		return m.j.Purpose().ErrMessage()
	default:
		return m.j.Moments().ErrMessage()
	}
}

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("244"))
	activeTabStyle = tabStyle.Bold(true).Foreground(lipgloss.Color("212")).Underline(true)
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	purposeStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	helpStyle      = lipgloss.NewStyle().Italic(true)
)

func (m Model) tabs() string {
	var parts []string
	for i, v := range router.Views() {
		label := fmt.Sprintf("%d %s", i+1, v.Title())
		if v == m.j.Mounted() {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) width() int {
	if m.termWidth > 0 {
		return m.termWidth
	}
	return 80
}

func (m Model) body() string {
	snap := m.j.Session().Snapshot()
	switch {
	case snap.Resolving():
		return "Signing in..."
	case !snap.Authenticated():
		return "Not signed in."
	}
	if m.j.Mounted() == router.Purpose {
		text := m.j.PurposeText()
		if text == "" {
			text = "No purpose yet. Press o to write one."
		}
		return purposeStyle.Render(wordwrap.String(text, m.width()-8))
	}
	if len(m.list.Items()) == 0 {
		return fmt.Sprintf("%s\n\n  Nothing here yet. Press o to add one.", m.list.Title)
	}
	return m.list.View()
}

// View renders the tabs, the mounted view and the footer.
func (m Model) View() string {
	modeStr := map[mode]string{
		modeNormal:  "NORMAL",
		modeInsert:  "INSERT",
		modeCommand: "CMD",
		modeHelp:    "HELP",
		modeConfirm: "CONFIRM",
	}[m.mode]

	snap := m.j.Session().Snapshot()
	who := "signed out"
	if snap.Authenticated() {
		who = snap.Author().Name()
	}
	status := fmt.Sprintf("[%s] %s (%s, new: %s)", modeStr, m.status, who, m.pendingType.Glyph().Symbol)
	status = statusStyle.Render(truncate.StringWithTail(status, uint(m.width()), "…"))

	body := m.tabs() + "\n\n" + m.body()

	switch m.mode {
	case modeInsert:
		prompt := "Add: "
		switch {
		case m.action == actionName:
			prompt = "Name: "
		case m.j.Mounted() == router.Moments && m.step == stepDescription:
			prompt = fmt.Sprintf("%s Description: ", m.form.Type.Glyph().Symbol)
		case m.j.Mounted() == router.Moments:
			prompt = fmt.Sprintf("%s Title: ", m.form.Type.Glyph().Symbol)
		case m.action == actionEdit:
			prompt = "Edit: "
		}
		body += "\n\n" + prompt + m.input.View()
	case modeCommand:
		body += "\n\n:" + m.input.View()
	case modeHelp:
		help := "Keys: 1/2/3 or tab switch views, j/k move, g/G top/bottom, o add, i edit, d delete, " +
			"t type for new moments, T cycle type of selected moment, ctrl+t type while typing, " +
			"N set name, :signout, :q quit"
		body += "\n\n" + helpStyle.Render(wordwrap.String(help, m.width()))
	}

	if e := m.viewErr(); e != "" {
		body += "\n\n" + errStyle.Render(e)
	}
	return body + "\n\n" + status
}

// applySizes recalculates the list size from the terminal size.
func (m *Model) applySizes() {
	if m.termWidth == 0 || m.termHeight == 0 {
		return
	}
	// tabs, input, error and status lines
	height := m.termHeight - 8
	if height < 5 {
		height = 5
	}
	m.list.SetSize(m.termWidth, height)
}
