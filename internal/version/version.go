package version

// Version is the current version of the chat-room CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/AnYiFan117/chat-room/internal/version.Version=v1.0.0'"
var Version = "dev"
