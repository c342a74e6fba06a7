package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	name := flag.String("name", "", "migration name (lowercase, underscores)")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	if !namePattern.MatchString(*name) {
		log.Fatal("migration name must be lowercase letters, digits and underscores")
	}

	version := time.Now().UTC().Format("20060102150405")
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}
	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(*dir, fmt.Sprintf("%s_%s.%s.sql", version, *name, direction))
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("file already exists: %s", path)
		}
		body := fmt.Sprintf("-- %s: %s\n", *name, direction)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			log.Fatalf("create %s migration: %v", direction, err)
		}
		log.Printf("created %s", path)
	}
}
