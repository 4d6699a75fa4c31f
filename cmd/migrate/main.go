// ABOUTME: Migration utility for the legacy processed-message list
// ABOUTME: Copies md5 message keys from a text file into the badger store with dry-run support

package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/store"
)

func main() {
	listPath := flag.String("file", "", "Path to processed_emails.txt (required)")
	configPath := flag.String("config", "", "Config file (default: ~/.config/kontakt/config.yml)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	flag.Parse()

	if *listPath == "" {
		log.Fatal("Error: -file flag is required")
	}

	if err := migrate(*listPath, *configPath, *dryRun); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration completed successfully")
}

func migrate(listPath, configPath string, dryRun bool) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}

	f, err := os.Open(listPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	log.Printf("Store: %s (retention %s)", cfg.Assistant.StorePath, cfg.Assistant.ProcessedTTL)

	processed, err := store.Open(cfg.Assistant.StorePath, cfg.Assistant.ProcessedTTL)
	if err != nil {
		return err
	}
	defer func() { _ = processed.Close() }()

	res, err := processed.ImportLegacy(f, time.Now(), dryRun)
	if err != nil {
		return err
	}

	prefix := ""
	if dryRun {
		prefix = "[DRY RUN] "
	}
	log.Printf("%sImported %d keys, %d already present", prefix, res.Imported, res.Existing)
	for _, bad := range res.Invalid {
		log.Printf("%sSkipped invalid line: %q", prefix, bad)
	}

	return nil
}
