package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("spacetraveling: could not load .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
