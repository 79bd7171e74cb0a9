package main

import (
	"log"

	"dramadl/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("Failed to initialize dramadl: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("dramadl runtime error: %v", err)
	}
}
