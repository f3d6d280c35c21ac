package view

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

type templatesState int

const (
	templatesStateBrowse templatesState = iota
	templatesStateFilePick
	templatesStateUpload
	templatesStateDraft
)

type TemplatesModel struct {
	CommonModel
	session         Session
	templateService *templates.Service
	documentService *document.Service

	state      templatesState
	list       list.Model
	filePicker filepicker.Model
	form       *huh.Form
	tpls       []*templates.Template

	// Upload form bindings
	path       string
	uploadName *string
	uploadType *string

	// Draft form bindings
	draftFor    *templates.Template
	draftClient *string
	draftData   dataFields

	status string
	err    error
}

func NewTemplatesModel(session Session, tplSvc *templates.Service, docSvc *document.Service) TemplatesModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".docx", ".txt", ".html", ".md"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Templates"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return TemplatesModel{
		session:         session,
		templateService: tplSvc,
		documentService: docSvc,
		list:            l,
		filePicker:      fp,
	}
}

func (m TemplatesModel) Title() string { return "Templates" }

func (m TemplatesModel) ShortHelp() string {
	switch m.state {
	case templatesStateFilePick:
		return "Enter: select | Esc: cancel"
	case templatesStateUpload, templatesStateDraft:
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | u: upload | n: new draft | x: deactivate | r: refresh"
}

func (m TemplatesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TemplatesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTemplatesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.tpls = msg.tpls
		m.refreshList()

		return m, nil

	case uploadResultMsg:
		m.state = templatesStateBrowse
		m.form = nil

		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
			return m, nil
		}

		m.status = okStyle.Render(fmt.Sprintf(
			"Published %s v%d with %d variables.", msg.tpl.Name, msg.tpl.Version, len(msg.tpl.Schema),
		))

		return m, m.loadCmd()

	case draftResultMsg:
		m.state = templatesStateBrowse
		m.form = nil

		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
			return m, nil
		}

		m.status = okStyle.Render(fmt.Sprintf("Created %s draft %s.", msg.doc.Type, msg.doc.ID))

		return m, nil

	case deactivateResultMsg:
		if msg.err != nil {
			m.status = errStyle.Render(FormatError(msg.err))
			return m, nil
		}

		m.status = "Template deactivated."

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc && m.state != templatesStateBrowse {
			m.state = templatesStateBrowse
			m.form = nil

			return m, nil
		}
	}

	switch m.state {
	case templatesStateFilePick:
		return m.updateFilePick(msg)
	case templatesStateUpload:
		return m.updateForm(msg, m.uploadCmd)
	case templatesStateDraft:
		return m.updateForm(msg, m.draftCmd)
	}

	return m.updateBrowse(msg)
}

func (m TemplatesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "u":
			m.state = templatesStateFilePick
			m.status = ""

			return m, m.filePicker.Init()
		case "n":
			return m.enterDraftMode()
		case "x":
			if tpl := m.selected(); tpl != nil {
				return m, m.deactivateCmd(tpl.ID)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m TemplatesModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		return m.enterUploadMode(path)
	}

	return m, cmd
}

func (m TemplatesModel) enterUploadMode(path string) (tea.Model, tea.Cmd) {
	m.path = path
	m.uploadName = new(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	m.uploadType = new(string(document.TypeQuote))

	m.form = newForm(
		huh.NewInput().
			Key("name").
			Title("Name").
			Value(m.uploadName).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("name cannot be empty")
				}

				return nil
			}),

		huh.NewSelect[string]().
			Key("type").
			Title("Document type").
			Options(
				huh.NewOption("Quote", string(document.TypeQuote)),
				huh.NewOption("Invoice", string(document.TypeInvoice)),
				huh.NewOption("Contract", string(document.TypeContract)),
			).
			Value(m.uploadType),
	)

	m.state = templatesStateUpload

	return m, m.form.Init()
}

func (m TemplatesModel) enterDraftMode() (tea.Model, tea.Cmd) {
	tpl := m.selected()
	if tpl == nil || !tpl.Active {
		m.status = "Select an active template to start a draft."
		return m, nil
	}

	m.draftFor = tpl
	m.draftClient = new(string)

	data, fields := newDataFields(tpl.Schema, nil)
	m.draftData = data

	client := huh.NewInput().
		Key("client_id").
		Title("Client ID").
		Value(m.draftClient).
		Validate(func(s string) error {
			_, err := uuid.Parse(strings.TrimSpace(s))
			return err
		})

	m.form = newForm(append([]huh.Field{client}, fields...)...)
	m.state = templatesStateDraft

	return m, m.form.Init()
}

func (m TemplatesModel) updateForm(msg tea.Msg, submit func() tea.Cmd) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, submit()
	case huh.StateAborted:
		m.state = templatesStateBrowse
		m.form = nil

		return m, nil
	}

	return m, cmd
}

func (m TemplatesModel) selected() *templates.Template {
	item, ok := m.list.SelectedItem().(templateItem)
	if !ok {
		return nil
	}

	return item.tpl
}

func (m *TemplatesModel) refreshList() {
	items := make([]list.Item, len(m.tpls))
	for i, tpl := range m.tpls {
		items[i] = templateItem{tpl: tpl}
	}

	m.list.SetItems(items)
}

func (m TemplatesModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errStyle.Render(FormatError(m.err)))
	}

	var content string

	switch m.state {
	case templatesStateFilePick:
		content = "Select template file (.docx, .txt, .html):\n\n" + m.filePicker.View()
	case templatesStateUpload:
		content = fmt.Sprintf("Upload %s\n\n%s", m.path, m.form.View())
	case templatesStateDraft:
		content = fmt.Sprintf("New draft from %s v%d\n\n%s", m.draftFor.Name, m.draftFor.Version, m.form.View())
	default:
		content = m.list.View()
	}

	if m.status != "" {
		content = m.status + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type templateItem struct {
	tpl *templates.Template
}

func (i templateItem) Title() string {
	title := fmt.Sprintf("%s v%d [%s]", i.tpl.Name, i.tpl.Version, i.tpl.Type)
	if !i.tpl.Active {
		title += dimStyle.Render(" inactive")
	}

	return title
}

func (i templateItem) Description() string {
	names := i.tpl.Schema.Names()
	if len(names) == 0 {
		return "no variables"
	}

	return strings.Join(names, ", ")
}

func (i templateItem) FilterValue() string { return i.tpl.Name }

// Messages

type loadTemplatesMsg struct {
	tpls []*templates.Template
	err  error
}

type uploadResultMsg struct {
	tpl *templates.Template
	err error
}

type draftResultMsg struct {
	doc *document.Document
	err error
}

type deactivateResultMsg struct {
	err error
}

func (m TemplatesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tpls, err := m.templateService.List(ctx, templates.ListFilter{
			TenantID:        m.session.TenantID,
			IncludeInactive: true,
		})

		return loadTemplatesMsg{tpls: tpls, err: err}
	}
}

func (m TemplatesModel) uploadCmd() tea.Cmd {
	path := m.path
	name := strings.TrimSpace(*m.uploadName)
	docType := document.DocType(*m.uploadType)

	return func() tea.Msg {
		content, err := os.ReadFile(path)
		if err != nil {
			return uploadResultMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		tpl, err := m.templateService.Upload(ctx, templates.UploadParams{
			TenantID: m.session.TenantID,
			Name:     name,
			Type:     docType,
			Content:  content,
		})

		return uploadResultMsg{tpl: tpl, err: err}
	}
}

func (m TemplatesModel) draftCmd() tea.Cmd {
	tpl := m.draftFor
	clientID, _ := uuid.Parse(strings.TrimSpace(*m.draftClient))
	data := m.draftData.Data()

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		doc, err := m.documentService.Create(ctx, document.CreateParams{
			TenantID:   m.session.TenantID,
			ClientID:   clientID,
			TemplateID: tpl.ID,
			Data:       data,
			CreatedBy:  m.session.ActorID,
		})

		return draftResultMsg{doc: doc, err: err}
	}
}

func (m TemplatesModel) deactivateCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return deactivateResultMsg{err: m.templateService.Deactivate(ctx, m.session.TenantID, id)}
	}
}
