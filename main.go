package main

import (
	"github.com/AnYiFan117/chat-room/cmd"
	"github.com/AnYiFan117/chat-room/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
