package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/charmbracelet/vgrid/internal/cmd"
)

func main() {
	cmd.Execute()
}
