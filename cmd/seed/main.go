// Package main provides a tool to seed a sample device database with
// test books and annotations.
//
// This creates a sqlite file with the same content and Bookmark layout a
// Kobo writes, so the sync and transfer tools can be exercised without a
// physical e-reader.
//
// Usage:
//
//	go run ./cmd/seed -out ./testdata/KoboReader.sqlite
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE content (
	ContentID   TEXT PRIMARY KEY,
	ContentType INTEGER,
	EpubType    INTEGER,
	Title       TEXT,
	Attribution TEXT,
	ReadStatus  INTEGER,
	TimeSpentReading INTEGER,
	DateLastRead TEXT,
	Language    TEXT
);
CREATE TABLE Bookmark (
	BookmarkID TEXT PRIMARY KEY,
	VolumeID   TEXT,
	ContentID  TEXT,
	Text       TEXT,
	Annotation TEXT,
	ExtraAnnotationData TEXT,
	DateCreated TEXT,
	ChapterProgress REAL,
	Hidden     TEXT,
	Type       TEXT,
	DateModified TEXT,
	StartContainerPath TEXT,
	StartContainerChildIndex INTEGER,
	StartOffset INTEGER,
	EndContainerPath TEXT,
	EndContainerChildIndex INTEGER,
	EndOffset  INTEGER
);
`

type seedBook struct {
	title      string
	author     string
	language   string
	readStatus int
	timeSpent  int
	highlights []string
}

var books = []seedBook{
	{
		title: "Dune", author: "Frank Herbert", language: "en",
		readStatus: 2, timeSpent: 41520,
		highlights: []string{
			"Fear is the mind-killer.",
			"He who controls the spice controls the universe.",
			"Deep in the human unconscious is a pervasive need for a logical universe that makes sense.",
		},
	},
	{
		title: "The Left Hand of Darkness", author: "Ursula K. Le Guin", language: "en-US",
		readStatus: 1, timeSpent: 9000,
		highlights: []string{
			"Light is the left hand of darkness and darkness the right hand of light.",
		},
	},
	{
		title: "Hyperion", author: "Dan Simmons", language: "en",
		readStatus: 0, timeSpent: 0,
	},
}

func main() {
	out := flag.String("out", "KoboReader.sqlite", "path of the database to create")
	annotationsPer := flag.Int("extra-annotations", 0, "extra generated annotations per annotated book")
	flag.Parse()

	if _, err := os.Stat(*out); err == nil {
		log.Fatalf("Refusing to overwrite existing file %s", *out)
	}

	db, err := sql.Open("sqlite", "file:"+*out)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	now := time.Now().UTC()
	totalAnnotations := 0
	for _, b := range books {
		volumeID := fmt.Sprintf("file:///mnt/onboard/%s.epub", uuid.NewString())
		lastRead := ""
		if b.timeSpent > 0 {
			lastRead = now.Add(-time.Duration(rand.Intn(30*24)) * time.Hour).Format(time.RFC3339)
		}
		_, err := db.Exec(`
			INSERT INTO content (ContentID, ContentType, EpubType, Title, Attribution, ReadStatus, TimeSpentReading, DateLastRead, Language)
			VALUES (?, 6, -1, ?, ?, ?, ?, ?, ?)`,
			volumeID, b.title, b.author, b.readStatus, b.timeSpent, lastRead, b.language)
		if err != nil {
			log.Fatalf("Failed to insert book %q: %v", b.title, err)
		}

		texts := b.highlights
		for i := 0; i < *annotationsPer && len(b.highlights) > 0; i++ {
			texts = append(texts, fmt.Sprintf("Generated passage %d from %s.", i+1, b.title))
		}
		for i, text := range texts {
			progress := float64(i+1) / float64(len(texts)+1)
			_, err := db.Exec(`
				INSERT INTO Bookmark (BookmarkID, VolumeID, ContentID, Text, Annotation, Type, ChapterProgress, DateCreated, StartContainerPath)
				VALUES (?, ?, ?, ?, '', 'highlight', ?, ?, ?)`,
				uuid.NewString(), volumeID, fmt.Sprintf("%s!chapter%d", volumeID, i/2+1),
				text, progress, now.Format(time.RFC3339),
				fmt.Sprintf("span#kobo\\.%d\\.1/text().point(/1/4/%d/1:0)", i+1, (i+1)*2))
			if err != nil {
				log.Fatalf("Failed to insert annotation: %v", err)
			}
			totalAnnotations++
		}

		fmt.Printf("Seeded %q by %s (%d annotations)\n", b.title, b.author, len(texts))
	}

	fmt.Printf("\nCreated %s with %d books and %d annotations\n", *out, len(books), totalAnnotations)
}
