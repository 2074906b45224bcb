package main

import (
	"os"

	"github.com/compozy/storepulse/cmd/storepulse/commands"
	"github.com/joho/godotenv"
)

func main() {
	if os.Getenv("STOREPULSE_ENV") != "production" {
		// A missing .env file is fine
		_ = godotenv.Load()
	}
	commands.Execute()
}
