package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-showroom/internal/db"
)

// migrate applies or rolls back the embedded schema.
//
//	go run ./cmd/tools/migrate up
//	go run ./cmd/tools/migrate -steps 1 down
func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	m, err := db.NewMigrator(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to init migrator: %v", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Printf("close migrator: source=%v db=%v", srcErr, dbErr)
		}
	}()

	switch command {
	case "up":
		err = db.Up(m)
	case "down":
		err = db.Down(m, *steps)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = m.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
		}
	default:
		log.Fatalf("unknown command %q (want up, down or version)", command)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
	log.Printf("migrate %s: done", command)
}
