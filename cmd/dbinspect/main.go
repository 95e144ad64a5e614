// Package main provides a small inspection tool for the local EPUB
// metadata cache. Useful when enrichment produces surprising values and
// the question is what the cache actually holds.
//
// Usage:
//
//	CACHE_PATH=~/.shelfsync/cache go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfsync/shelfsync/internal/domain"
)

func main() {
	cachePath := os.Getenv("CACHE_PATH")
	if cachePath == "" {
		cachePath = os.ExpandEnv("$HOME/.shelfsync/cache")
	}

	opts := badger.DefaultOptions(cachePath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Metadata Cache Inspection ===")
	fmt.Println()

	count := 0
	prefix := []byte("epub:")
	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), "epub:")

			err := item.Value(func(val []byte) error {
				var md domain.EpubMetadata
				if err := json.Unmarshal(val, &md); err != nil {
					return err
				}

				count++
				fmt.Printf("Entry: %s\n", key)
				fmt.Printf("  Title: %s\n", md.Title)
				if md.Author != "" {
					fmt.Printf("  Author: %s\n", md.Author)
				}
				if len(md.Subjects) > 0 {
					fmt.Printf("  Subjects: %s\n", strings.Join(md.Subjects, ", "))
				}
				if md.Language != "" {
					fmt.Printf("  Language: %s\n", md.Language)
				}
				if md.PublicationDate != "" {
					fmt.Printf("  Published: %s\n", md.PublicationDate)
				}
				if md.Pages > 0 {
					fmt.Printf("  Pages: %d\n", md.Pages)
				}
				fmt.Println()
				return nil
			})
			if err != nil {
				fmt.Printf("Entry: %s (undecodable: %v)\n\n", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan cache: %v", err)
	}

	fmt.Printf("Total cached entries: %d\n", count)
}
