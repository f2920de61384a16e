package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/librix/internal/catalog"
	"github.com/desertthunder/librix/internal/formatter"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ReleaseListView ViewState = iota
	DetailView
	SyncView
	ResultView
)

// ReleaseSource lists cached releases.
type ReleaseSource interface {
	All(ctx context.Context) ([]*models.Release, error)
}

// CatalogSynchronizer runs one catalog cycle. [tasks.Synchronizer] satisfies it.
type CatalogSynchronizer interface {
	SynchronizeCatalog(ctx context.Context, progress chan<- tasks.ProgressUpdate) *tasks.CatalogResult
}

// ModelOpts holds the dependencies of a [Model].
type ModelOpts struct {
	Releases     ReleaseSource
	Changes      tasks.ChangesStore
	Synchronizer CatalogSynchronizer
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	releases     ReleaseSource
	changes      tasks.ChangesStore
	synchronizer CatalogSynchronizer
	width        int
	height       int
	releaseList  list.Model
	cached       []*models.Release
	ledger       *models.Changes
	selected     *models.Release
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	resultChan   chan *tasks.CatalogResult
	progress     tasks.ProgressUpdate
	result       *tasks.CatalogResult
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	releaseList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	releaseList.Title = "Releases"
	releaseList.Filter = fuzzyFilter
	releaseList.SetShowHelp(false)

	return &Model{
		ctx:          ctx,
		view:         ReleaseListView,
		releases:     opts.Releases,
		changes:      opts.Changes,
		synchronizer: opts.Synchronizer,
		releaseList:  releaseList,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by loading the cached catalog.
func (m *Model) Init() tea.Cmd {
	return m.loadCatalog()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.releaseList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ReleaseListView:
			return m.handleListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case SyncView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.releaseList, cmd = m.releaseList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCatalogLoaded:
		data := msg.data.(catalogLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.ledger = data.changes
		m.cached = catalog.Filter(data.releases, catalog.Query{Descending: true}, catalog.Marks{})
		m.releaseList.Title = fmt.Sprintf("Releases (%d)", len(m.cached))
		return m, m.releaseList.SetItems(newReleaseItems(m.cached, m.ledger))

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		m.result = msg.data.(*tasks.CatalogResult)
		m.progressChan = nil
		m.resultChan = nil
		m.view = ResultView
		return m, nil

	case MsgAcknowledged:
		data := msg.data.(acknowledged)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not update changes: %v", data.err))
			return m, nil
		}
		m.ledger = data.changes
		m.status = styles.ok.Render(fmt.Sprintf("Marked #%d as seen", data.id))
		return m, m.releaseList.SetItems(newReleaseItems(m.cached, m.ledger))
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ReleaseListView:
		return m.renderList()
	case DetailView:
		return m.renderDetail()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.releaseList.SettingFilter() {
		var cmd tea.Cmd
		m.releaseList, cmd = m.releaseList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.releaseList.SelectedItem().(releaseItem); ok {
			m.selected = item.release
			m.view = DetailView
		}
		return m, nil
	case key.Matches(msg, m.keys.sync):
		if m.synchronizer != nil {
			return m, m.startSync()
		}
		return m, nil
	case key.Matches(msg, m.keys.ack):
		if item, ok := m.releaseList.SelectedItem().(releaseItem); ok {
			return m, m.acknowledge(item.release.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = ""
		return m, m.loadCatalog()
	}

	var cmd tea.Cmd
	m.releaseList, cmd = m.releaseList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ReleaseListView
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.ack):
		if m.selected != nil {
			return m, m.acknowledge(m.selected.ID)
		}
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = ReleaseListView
		m.result = nil
		return m, m.loadCatalog()
	}
	return m, nil
}

func (m *Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		releases, err := m.releases.All(m.ctx)
		if err != nil {
			return catalogLoadedMsg(nil, nil, err)
		}
		changes, err := m.changes.LoadOrCreate(m.ctx)
		return catalogLoadedMsg(releases, changes, err)
	}
}

// acknowledge clears every pending delta of the release. Nothing is written when none are pending.
func (m *Model) acknowledge(id int64) tea.Cmd {
	return func() tea.Msg {
		c, err := m.changes.LoadOrCreate(m.ctx)
		if err != nil {
			return acknowledgedMsg(id, nil, err)
		}
		if !marksFor(id, c).any() {
			return acknowledgedMsg(id, c, nil)
		}

		c.AcknowledgeRelease(id)
		if err := m.changes.Update(m.ctx, c); err != nil {
			return acknowledgedMsg(id, nil, err)
		}
		return acknowledgedMsg(id, c, nil)
	}
}

func (m *Model) startSync() tea.Cmd {
	m.view = SyncView
	m.status = ""
	m.progress = tasks.ProgressUpdate{}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.resultChan = make(chan *tasks.CatalogResult, 1)

	progress, done := m.progressChan, m.resultChan
	go func() {
		result := m.synchronizer.SynchronizeCatalog(m.ctx, progress)
		done <- result
		close(progress)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.resultChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return syncCompleteMsg(<-done)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.ack, m.keys.reload, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	if m.status != "" {
		return fmt.Sprintf("%s\n%s\n\n%s", m.releaseList.View(), m.status, helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.releaseList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}

	detail := string(formatter.ReleaseDetail(m.selected))

	var pending string
	if marks := marksFor(m.selected.ID, m.ledger); marks.any() {
		pending = styles.marker.Render(releaseItem{release: m.selected, marks: marks}.pendingSummary())
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.ack, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.status != "" {
		pending = fmt.Sprintf("%s\n%s", pending, m.status)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", detail, pending, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Synchronizing Catalog")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchCatalog:
		phase = "Fetching remote catalog..."
	case tasks.LoadCache:
		phase = "Loading cached releases..."
	case tasks.Reconcile:
		phase = fmt.Sprintf("Reconciling releases (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.PersistReleases:
		phase = "Saving releases..."
	case tasks.PersistChanges:
		phase = "Saving change ledger..."
	case tasks.Completed:
		phase = "Finishing..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	switch {
	case m.result == nil:
		return styles.err.Render("No result available") + "\n\n" + helpView
	case m.result.Canceled:
		return styles.warn.Render("Synchronization canceled") + "\n\n" + helpView
	case m.result.Err != nil:
		return styles.err.Render(fmt.Sprintf("Synchronization failed: %v", m.result.Err)) + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Catalog synchronized")
	info := fmt.Sprintf(
		"\nFetched: %d\nAdded: %d\nUpdated: %d",
		m.result.Fetched,
		m.result.Added,
		m.result.Updated,
	)
	if m.result.InitialImport {
		info += "\n" + styles.help.Render("Initial import: no changes recorded")
	}

	p := m.result.Pending
	pending := fmt.Sprintf("\n\nPending: %d new releases, %d with new episodes, %d with new torrents, %d updated torrents",
		p.NewReleases, p.NewOnlineSeries, p.NewTorrents, p.NewTorrentSeries)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, pending, helpView)
}
