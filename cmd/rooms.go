package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnYiFan117/chat-room/internal/room"
	"github.com/AnYiFan117/chat-room/internal/ui"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List rooms you have created or joined",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}

		registry := room.NewRegistry(st)
		rows := make([]ui.KnownRoomRow, 0)
		for _, id := range registry.Known() {
			rows = append(rows, ui.KnownRoomRow{RoomID: id, Link: cfg.RoomLink(id)})
		}
		ui.RenderKnownRooms(rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}
