package main

import (
	"github.com/joho/godotenv"

	"github.com/mini-rodalies-3d/subway/internal/cli"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cli.Execute()
}
