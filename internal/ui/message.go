package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCatalogLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
	MsgAcknowledged
)

type catalogLoaded struct {
	releases []*models.Release
	changes  *models.Changes
	err      error
}

type acknowledged struct {
	id      int64
	changes *models.Changes
	err     error
}

// catalogLoadedMsg is the constructor for [MsgCatalogLoaded]
func catalogLoadedMsg(releases []*models.Release, changes *models.Changes, err error) Msg {
	return Msg{kind: MsgCatalogLoaded, data: catalogLoaded{releases, changes, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.CatalogResult) Msg {
	return Msg{kind: MsgSyncComplete, data: result}
}

// acknowledgedMsg is the constructor for [MsgAcknowledged]
func acknowledgedMsg(id int64, changes *models.Changes, err error) Msg {
	return Msg{kind: MsgAcknowledged, data: acknowledged{id, changes, err}}
}
