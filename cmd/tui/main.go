package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/docforge/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/docforge/internal/artifact"
	"github.com/MrJamesThe3rd/docforge/internal/config"
	"github.com/MrJamesThe3rd/docforge/internal/convert"
	"github.com/MrJamesThe3rd/docforge/internal/database"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	documentStore "github.com/MrJamesThe3rd/docforge/internal/document/store"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/sequence"
	sequenceStore "github.com/MrJamesThe3rd/docforge/internal/sequence/store"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
	templateStore "github.com/MrJamesThe3rd/docforge/internal/templates/store"
)

type model struct {
	session         view.Session
	templateService *templates.Service
	documentService *document.Service
	orchestrator    *generation.Orchestrator

	currentView View

	templatesView view.TemplatesModel
	documentsView view.DocumentsModel
}

type View int

const (
	ViewMenu      View = 0
	ViewTemplates View = 1
	ViewDocuments View = 2
)

func initialModel() (model, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return model{}, fmt.Errorf("loading config: %w", err)
	}

	session, err := consoleSession(cfg)
	if err != nil {
		return model{}, err
	}

	ctx := context.Background()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return model{}, fmt.Errorf("connecting to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		return model{}, fmt.Errorf("migrating database: %w", err)
	}

	store, err := artifact.Open(ctx, cfg.Storage.Driver, artifact.S3Options{
		Endpoint:     cfg.Storage.Endpoint,
		Region:       cfg.Storage.Region,
		Bucket:       cfg.Storage.Bucket,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		return model{}, fmt.Errorf("opening artifact store: %w", err)
	}

	var (
		engine          = render.NewEngine()
		documentRepo    = documentStore.New(db)
		templateService = templates.NewService(templateStore.New(db), store, engine)
		documentService = document.NewService(documentRepo, templateService)
	)

	orchestrator := generation.New(
		documentRepo,
		templateService,
		sequence.NewAllocator(sequenceStore.New(db)),
		engine,
		store,
		convert.NewGotenberg(convert.Options{
			URL:      cfg.Converter.URL,
			Timeout:  cfg.Converter.Timeout,
			RetryMax: cfg.Converter.RetryMax,
		}),
	)

	return model{
		session:         session,
		templateService: templateService,
		documentService: documentService,
		orchestrator:    orchestrator,
		currentView:     ViewMenu,
	}, nil
}

func consoleSession(cfg *config.Config) (view.Session, error) {
	tenantID, err := uuid.Parse(cfg.Console.TenantID)
	if err != nil {
		return view.Session{}, fmt.Errorf("CONSOLE_TENANT_ID must be a UUID: %w", err)
	}

	actorID, err := uuid.Parse(cfg.Console.ActorID)
	if err != nil {
		return view.Session{}, fmt.Errorf("CONSOLE_ACTOR_ID must be a UUID: %w", err)
	}

	return view.Session{TenantID: tenantID, ActorID: actorID}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewTemplates
				m.templatesView = view.NewTemplatesModel(m.session, m.templateService, m.documentService)

				return m, m.templatesView.Init()
			case "2":
				m.currentView = ViewDocuments
				m.documentsView = view.NewDocumentsModel(
					m.session, m.documentService, m.templateService, m.orchestrator,
				)

				return m, m.documentsView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewTemplates:
		var newModel tea.Model
		newModel, cmd = m.templatesView.Update(msg)
		m.templatesView = newModel.(view.TemplatesModel)
	case ViewDocuments:
		var newModel tea.Model
		newModel, cmd = m.documentsView.Update(msg)
		m.documentsView = newModel.(view.DocumentsModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"DocForge Console\n\n" +
				"1. Templates and drafts\n" +
				"2. Documents\n\n" +
				"q. Quit",
		)
	case ViewTemplates:
		return m.templatesView.View() + "\n" + m.templatesView.ShortHelp()
	case ViewDocuments:
		return m.documentsView.View() + "\n" + m.documentsView.ShortHelp()
	}

	return "Unknown View"
}

func main() {
	m, err := initialModel()
	if err != nil {
		slog.Error("failed to start console", "error", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
