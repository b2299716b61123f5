package main

import (
	"log"

	"github.com/tech-arch1tect/gymportal/app"
)

func main() {
	application, err := app.NewApp().
		WithAutoConfig().
		Build()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	application.Run()
}
