package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/AnYiFan117/chat-room/internal/config"
	"github.com/AnYiFan117/chat-room/internal/store"
	"github.com/AnYiFan117/chat-room/internal/ui"
	"github.com/AnYiFan117/chat-room/internal/version"
)

var (
	flagDomain    string
	flagSignaling string
	flagName      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "chat-room",
	Short:   "Peer-to-peer chat rooms over WebRTC, no central chat server",
	Long:    `chat-room is a terminal chat where rooms live entirely between the peers in them. A lightweight rendezvous server introduces peers to each other; messages then travel directly over WebRTC data channels and merge through a replicated log, so everyone converges on the same history without any server storing it.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDomain, "domain", "", "rendezvous server domain")
	rootCmd.PersistentFlags().StringVar(&flagSignaling, "signaling", "", "signaling endpoint URL template ({room} is substituted)")
	rootCmd.PersistentFlags().StringVarP(&flagName, "name", "n", "", "display name for this session")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Domain:       flagDomain,
		SignalingURL: flagSignaling,
	})
}

func openStore() (*store.Store, error) {
	return store.Open("")
}
