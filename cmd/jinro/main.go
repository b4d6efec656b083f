package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/jinro/internal/app"
)

func main() {
	// .envがあれば読み込む（なくてもエラーにしない）
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jinro: %v\n", err)
		os.Exit(1)
	}
}
