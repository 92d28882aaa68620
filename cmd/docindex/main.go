// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/docindex"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/vector"
	"github.com/urfave/cli/v2"
)

const snippetLength = 80

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "docindex",
		Usage:  "Ingest documents and search them by similarity",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				Value:   "docindex.toml",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Data directory (overrides config and environment)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Document store backend (badger, sqlite)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Add a document and schedule its ingestion",
				Action: addCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{Name: "file", Usage: "Path of a file to upload"},
					&cli.StringFlag{Name: "url", Usage: "URL of a remote document"},
					&cli.StringFlag{Name: "text", Usage: "Inline document text"},
					&cli.StringFlag{Name: "title", Usage: "Document title"},
					&cli.BoolFlag{Name: "process", Usage: "Run queued ingestion jobs before returning"},
				},
			},
			{
				Name:   "work",
				Usage:  "Process queued ingestion jobs",
				Action: workCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "once", Usage: "Exit when the queue is empty"},
				},
			},
			{
				Name:   "list",
				Usage:  "List a user's documents, newest first",
				Action: listCommand,
				Flags:  []cli.Flag{userFlag()},
			},
			{
				Name:      "get",
				Usage:     "Show a document",
				ArgsUsage: "<document-id>",
				Action:    getCommand,
				Flags:     []cli.Flag{userFlag()},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and its fragments",
				ArgsUsage: "<document-id>",
				Action:    deleteCommand,
				Flags:     []cli.Flag{userFlag()},
			},
			{
				Name:      "search",
				Usage:     "Search a user's documents",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
			{
				Name:      "embed",
				Usage:     "Print the vector of a text",
				ArgsUsage: "<text...>",
				Action:    embedCommand,
			},
		},
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Owner of the documents",
		Required: true,
	}
}

func openIndex(c *cli.Context) (*docindex.Index, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.DataDir = c.String("db")
		cfg.UploadDir = ""
	}
	if c.IsSet("store") {
		cfg.Store = c.String("store")
	}

	idx, err := docindex.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, nil
}

func addCommand(c *cli.Context) error {
	ctx := c.Context

	nd := docindex.NewDocument{
		Owner: c.String("user"),
		Title: c.String("title"),
		URL:   c.String("url"),
		Text:  c.String("text"),
	}
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		nd.Content = f
		nd.FileName = filepath.Base(path)
	}

	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	doc, err := idx.CreateDocument(ctx, nd)
	if err != nil {
		return err
	}

	if c.Bool("process") {
		if _, err := idx.Drain(ctx); err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		if doc, err = idx.GetDocument(ctx, nd.Owner, doc.ID); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", doc.ID, doc.Status, doc.Title)
	return nil
}

func workCommand(c *cli.Context) error {
	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	if c.Bool("once") {
		executed, err := idx.Drain(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "processed %d jobs\n", executed)
		return nil
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("worker started", "data_dir", idx.Config().DataDir)
	return idx.RunWorker(ctx)
}

func listCommand(c *cli.Context) error {
	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	docs, err := idx.ListDocuments(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	for _, doc := range docs {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", doc.ID, doc.Status, doc.Title)
	}
	return nil
}

func getCommand(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}

	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	doc, err := idx.GetDocument(c.Context, c.String("user"), id)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "id:      %s\n", doc.ID)
	fmt.Fprintf(w, "title:   %s\n", doc.Title)
	fmt.Fprintf(w, "source:  %s\n", doc.Source)
	fmt.Fprintf(w, "status:  %s\n", doc.Status)
	if doc.Error != "" {
		fmt.Fprintf(w, "error:   %s\n", doc.Error)
	}
	if doc.StoragePath != "" {
		fmt.Fprintf(w, "path:    %s\n", doc.StoragePath)
	}
	if doc.URL != "" {
		fmt.Fprintf(w, "url:     %s\n", doc.URL)
	}
	fmt.Fprintf(w, "created: %s\n", doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func deleteCommand(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}

	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	return idx.DeleteDocument(c.Context, c.String("user"), id)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return errors.New("query is required")
	}

	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	results, err := idx.Search(c.Context, c.String("user"), query, c.Int("top-k"))
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(c.App.Writer, "%.4f\t%s\t%s\t%s\n", r.Score, r.DocumentID, r.DocumentTitle, snippet(r.Content))
	}
	return nil
}

func embedCommand(c *cli.Context) error {
	vec := vector.Embed(strings.Join(c.Args().Slice(), " "))
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	fmt.Fprintln(c.App.Writer, strings.Join(parts, " "))
	return nil
}

func documentArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("exactly one document id is required")
	}
	return c.Args().First(), nil
}

func snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength]) + "..."
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
