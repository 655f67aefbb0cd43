package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local runs, real deployments set the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
