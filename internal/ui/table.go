package ui

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// KnownRoomRow is one line of the known-rooms listing.
type KnownRoomRow struct {
	RoomID string
	Link   string
}

// RenderKnownRooms prints the rooms this peer has visited.
func RenderKnownRooms(rows []KnownRoomRow) {
	if len(rows) == 0 {
		PrintInfo("No rooms visited yet. Use 'chat-room create' to start one.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatTitle
	t.AppendHeader(table.Row{"#", "Room", "Link"})
	for i, row := range rows {
		t.AppendRow(table.Row{i + 1, row.RoomID, row.Link})
	}
	t.Render()
}
