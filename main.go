package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"memberbase/internal/app"
)

// @title        memberbase API
// @version      1.0
// @description  Registration and authentication service behind the memberbase SPA.
// @BasePath     /
func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, continuing")
		}
	}
	app.Run()
}
