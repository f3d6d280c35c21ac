package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

type documentsState int

const (
	documentsStateBrowse documentsState = iota
	documentsStateEdit
	documentsStateVersions
)

var (
	statusFilters = []*document.Status{nil, new(document.StatusDraft), new(document.StatusGenerated)}
	typeFilters   = []*document.DocType{
		nil, new(document.TypeQuote), new(document.TypeInvoice), new(document.TypeContract),
	}
)

type DocumentsModel struct {
	CommonModel
	session         Session
	documentService *document.Service
	templateService *templates.Service
	orchestrator    *generation.Orchestrator

	state    documentsState
	table    table.Model
	docs     []*document.Document
	form     *huh.Form
	editing  *document.Document
	editData dataFields
	versions []*document.Version

	// Filter cycling
	statusFilterIdx int
	typeFilterIdx   int

	loading    bool
	generating bool
	err        error
	status     string
}

func NewDocumentsModel(
	session Session,
	docSvc *document.Service,
	tplSvc *templates.Service,
	orchestrator *generation.Orchestrator,
) DocumentsModel {
	columns := []table.Column{
		{Title: "Created", Width: 12},
		{Title: "Type", Width: 10},
		{Title: "Status", Width: 11},
		{Title: "Client", Width: 38},
		{Title: "ID", Width: 38},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return DocumentsModel{
		session:         session,
		documentService: docSvc,
		templateService: tplSvc,
		orchestrator:    orchestrator,
		table:           t,
		loading:         true,
	}
}

func (m DocumentsModel) Title() string { return "Documents" }

func (m DocumentsModel) ShortHelp() string {
	switch m.state {
	case documentsStateEdit:
		return "Navigate form | Esc: cancel"
	case documentsStateVersions:
		return "Esc: close"
	}

	return "Esc: back | g: generate | e: edit | v: versions | x: delete | s: status | t: type | r: refresh"
}

func (m DocumentsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DocumentsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDocumentsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.docs = msg.docs
		m.refreshTable()

		return m, nil

	case generateResultMsg:
		m.generating = false

		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
			return m, m.loadCmd()
		}

		m.status = okStyle.Render(fmt.Sprintf(
			"Generated %s (%s).", msg.result.DocNumber, FormatSecondary(msg.result.Secondary),
		))

		return m, m.loadCmd()

	case editTemplateMsg:
		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
			return m, nil
		}

		return m.enterEditMode(msg.tpl)

	case documentSaveMsg:
		m.state = documentsStateBrowse
		m.form = nil
		m.editing = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
		} else {
			m.status = msg.done
		}

		return m, m.loadCmd()

	case versionsMsg:
		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
			return m, nil
		}

		m.versions = msg.versions
		m.state = documentsStateVersions
		m.table.Blur()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case documentsStateEdit:
		return m.updateEdit(msg)
	case documentsStateVersions:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.state = documentsStateBrowse
			m.versions = nil
			m.table.Focus()
		}

		return m, nil
	}

	return m.updateBrowse(msg)
}

func (m DocumentsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok && !m.generating {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			return m, m.loadCmd()
		case "t":
			m.typeFilterIdx = (m.typeFilterIdx + 1) % len(typeFilters)
			return m, m.loadCmd()
		case "g":
			if doc := m.selected(); doc != nil {
				m.generating = true
				m.status = "Generating..."

				return m, m.generateCmd(doc.ID)
			}
		case "e":
			if doc := m.selected(); doc != nil {
				if doc.Status != document.StatusDraft {
					m.status = "Only drafts can be edited."
					return m, nil
				}

				m.editing = doc

				return m, m.loadTemplateCmd(doc.TemplateID)
			}
		case "v":
			if doc := m.selected(); doc != nil {
				return m, m.versionsCmd(doc.ID)
			}
		case "x":
			if doc := m.selected(); doc != nil {
				return m, m.deleteCmd(doc.ID)
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DocumentsModel) enterEditMode(tpl *templates.Template) (tea.Model, tea.Cmd) {
	if m.editing == nil {
		return m, nil
	}

	data, fields := newDataFields(tpl.Schema, m.editing.Data)
	m.editData = data
	m.form = newForm(fields...)
	m.state = documentsStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m DocumentsModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = documentsStateBrowse
		m.form = nil
		m.editing = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m DocumentsModel) selected() *document.Document {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.docs) {
		return nil
	}

	return m.docs[idx]
}

func (m DocumentsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading documents...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errStyle.Render(FormatError(m.err)))
	}

	header := fmt.Sprintf(
		"Filter: [s] Status: %s | [t] Type: %s",
		activeStyle(filterLabel(statusFilters[m.statusFilterIdx])),
		activeStyle(filterLabel(typeFilters[m.typeFilterIdx])),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	var panel string

	switch {
	case m.state == documentsStateEdit && m.form != nil:
		panel = "Edit Draft\n\n" + m.form.View()
	case m.state == documentsStateVersions:
		panel = "Versions\n\n" + m.versionsView()
	}

	if panel != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(64).
			Render(panel))
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m DocumentsModel) versionsView() string {
	if len(m.versions) == 0 {
		return dimStyle.Render("Not generated yet.")
	}

	var b strings.Builder

	for _, v := range m.versions {
		fmt.Fprintf(&b, "v%d  %s  %s  %s\n", v.Number, v.DocNumber, FormatDate(v.GeneratedAt), FormatSecondary(v.Secondary))
	}

	return b.String()
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func filterLabel[T ~string](v *T) string {
	if v == nil {
		return "All"
	}

	return string(*v)
}

func (m *DocumentsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.docs))
	for _, doc := range m.docs {
		rows = append(rows, table.Row{
			FormatDate(doc.CreatedAt),
			string(doc.Type),
			string(doc.Status),
			doc.ClientID.String(),
			doc.ID.String(),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadDocumentsMsg struct {
	docs []*document.Document
	err  error
}

type generateResultMsg struct {
	result *generation.Result
	err    error
}

type editTemplateMsg struct {
	tpl *templates.Template
	err error
}

type documentSaveMsg struct {
	done string
	err  error
}

type versionsMsg struct {
	versions []*document.Version
	err      error
}

func (m DocumentsModel) loadCmd() tea.Cmd {
	filter := document.ListFilter{
		TenantID: m.session.TenantID,
		Status:   statusFilters[m.statusFilterIdx],
		Type:     typeFilters[m.typeFilterIdx],
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		docs, err := m.documentService.List(ctx, filter)

		return loadDocumentsMsg{docs: docs, err: err}
	}
}

func (m DocumentsModel) generateCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()

		// The orchestrator only knows document ids; make sure the draft is ours first.
		if _, err := m.documentService.Get(ctx, m.session.TenantID, id); err != nil {
			return generateResultMsg{err: err}
		}

		result, err := m.orchestrator.Generate(ctx, id, m.session.ActorID)

		return generateResultMsg{result: result, err: err}
	}
}

func (m DocumentsModel) loadTemplateCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tpl, err := m.templateService.Get(ctx, m.session.TenantID, id)

		return editTemplateMsg{tpl: tpl, err: err}
	}
}

func (m DocumentsModel) saveCmd() tea.Cmd {
	id := m.editing.ID
	data := m.editData.Merge(m.editing.Data)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.documentService.Update(ctx, m.session.TenantID, id, document.UpdateParams{Data: data})

		return documentSaveMsg{done: "Draft saved.", err: err}
	}
}

func (m DocumentsModel) deleteCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return documentSaveMsg{done: "Draft deleted.", err: m.documentService.Delete(ctx, m.session.TenantID, id)}
	}
}

func (m DocumentsModel) versionsCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		versions, err := m.documentService.Versions(ctx, m.session.TenantID, id)

		return versionsMsg{versions: versions, err: err}
	}
}
