package main

import (
	"fmt"
	"os"

	"github.com/lumokids/storytime-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		application.Log.Fatal("HTTP server exited", "error", err)
	}
}
