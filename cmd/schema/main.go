package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"duskhaven/server/internal/bestiary"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "output path for the JSON schema (stdout when empty)")
	flag.Parse()

	schema, err := bestiary.BuildSchema()
	if err != nil {
		log.Fatalf("schema: %v", err)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("schema: marshal: %v", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("schema: create output dir: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("schema: write: %v", err)
	}
}
