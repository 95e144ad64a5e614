// Package main provides the entry point for the transfer tool, which
// copies annotations between two device databases when a reader moves
// their library to a new e-reader.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shelfsync/shelfsync/internal/backup"
	"github.com/shelfsync/shelfsync/internal/device"
	"github.com/shelfsync/shelfsync/internal/logger"
)

func main() {
	source := flag.String("source", "", "path to the old device's sqlite database")
	target := flag.String("target", "", "path to the new device's sqlite database")
	dryRun := flag.Bool("dry-run", false, "report what would be copied without writing")
	books := flag.String("books", "", "comma-separated titles to copy; empty copies all annotated books")
	noBackup := flag.Bool("no-backup", false, "skip backing up the target database before writing")
	backupKeep := flag.Int("backup-keep", 5, "how many target backups to retain")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Config{Level: logger.ParseLevel(*level)})

	if *source == "" || *target == "" {
		fmt.Fprintln(os.Stderr, "Both -source and -target are required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*dryRun && !*noBackup {
		if _, err := backup.Create(*target, backup.Options{Keep: *backupKeep}, log.Logger); err != nil {
			log.Fatal("Back up target database", "error", err)
		}
	}

	src, err := device.Open(*source, log.Logger)
	if err != nil {
		log.Fatal("Open source database", "error", err)
	}
	defer src.Close()

	dst, err := device.OpenWritable(*target, log.Logger)
	if err != nil {
		log.Fatal("Open target database", "error", err)
	}
	defer dst.Close()

	opts := device.TransferOptions{DryRun: *dryRun}
	if *books != "" {
		for _, title := range strings.Split(*books, ",") {
			if title = strings.TrimSpace(title); title != "" {
				opts.Books = append(opts.Books, title)
			}
		}
	}

	stats, err := device.Transfer(ctx, src, dst, opts)
	if err != nil {
		log.Fatal("Transfer failed", "error", err)
	}

	log.Info("Transfer complete",
		"books_matched", stats.BooksMatched,
		"books_skipped", stats.BooksSkipped,
		"rows_copied", stats.RowsCopied,
		"dry_run", *dryRun,
	)
}
