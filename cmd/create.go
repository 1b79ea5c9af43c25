package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnYiFan117/chat-room/internal/room"
	"github.com/AnYiFan117/chat-room/internal/ui"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room with a fresh id and join it",
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
		id := registry.Generate()

		fmt.Println(ui.RoomBox(id, cfg.RoomLink(id)))
		fmt.Println()
		return runRoom(cfg, st, id)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
