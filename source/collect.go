package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"pdf-quickcheck/config"
	"pdf-quickcheck/scan"
)

// Collector loads documents for the given command line paths.
type Collector struct {
	IncludeMail bool
	Logger      *slog.Logger

	// Optional progress callback (nil if unused)
	OnProgress scan.ProgressFunc
}

// Collection is everything Collect gathered. Warnings describe containers
// that were skipped; they never stop the run.
type Collection struct {
	Documents []scan.Document
	Files     int
	Warnings  []string
}

// Collect expands paths into documents in argument order. Unreadable inputs
// are returned joined in the error; the documents that could be read are
// still returned.
func (c *Collector) Collect(ctx context.Context, paths []string) (*Collection, error) {
	walker := NewFileWalker(c.IncludeMail)
	out := &Collection{}

	var files []string
	var errs []error
	for _, p := range paths {
		found, err := walker.FindFiles(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("scan %s: %w", p, err))
			continue
		}
		files = append(files, found...)
	}
	out.Files = len(files)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if c.OnProgress != nil {
			c.OnProgress("loading", i+1, len(files), path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))
			continue
		}

		if c.IncludeMail && config.IsMailFile(path) {
			docs, err := Attachments(path, data)
			if err != nil {
				c.logger().Debug("container skipped", "path", path, "err", err)
				out.Warnings = append(out.Warnings, err.Error())
				continue
			}
			if len(docs) == 0 {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s: no PDF attachments", path))
			}
			out.Documents = append(out.Documents, docs...)
			continue
		}

		out.Documents = append(out.Documents, scan.Document{Name: path, Data: data})
	}

	return out, errors.Join(errs...)
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
