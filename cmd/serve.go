package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AnYiFan117/chat-room/internal/hub"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a signaling rendezvous server",
	Long:  `Runs the websocket rendezvous server that introduces peers in the same room to each other. It relays WebRTC signaling only; chat content never passes through it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hub.ListenAndServe(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
