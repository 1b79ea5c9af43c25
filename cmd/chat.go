package cmd

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AnYiFan117/chat-room/internal/config"
	"github.com/AnYiFan117/chat-room/internal/room"
	"github.com/AnYiFan117/chat-room/internal/session"
	"github.com/AnYiFan117/chat-room/internal/store"
	"github.com/AnYiFan117/chat-room/internal/transport"
	"github.com/AnYiFan117/chat-room/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat <room-id>",
	Short: "Join a room and chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
		return runRoom(cfg, st, args[0])
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// runRoom connects to a room and hands the terminal to the chat UI until
// the user leaves.
func runRoom(cfg *config.Config, st *store.Store, roomID string) error {
	id := room.Normalize(roomID)
	user := session.User{ID: st.PeerID(), DisplayName: resolveName(st)}

	registry := room.NewRegistry(st)
	manager := session.NewManager(transport.NewOpener(cfg, user.ID), registry)
	defer manager.Close()

	changes := make(chan struct{}, 1)
	manager.SetOnChange(func(room.ID) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	if err := manager.Connect(id, user); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	program := tea.NewProgram(
		ui.NewChat(manager, id, user, changes),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}

	manager.Disconnect(id, user)
	return nil
}

// resolveName picks the display name for this session: the --name flag
// (persisted for next time), then the stored name, then the anonymous
// default.
func resolveName(st *store.Store) string {
	if flagName != "" {
		if err := st.SetDisplayName(flagName); err != nil {
			slog.Warn("could not persist display name", "err", err)
		}
		return flagName
	}
	if name := st.DisplayName(); name != "" {
		return name
	}
	return "anonymous"
}
