// Package pipeline sequences mailbox retrieval, content extraction,
// event parsing, and CSV output.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/emersion/go-imap/v2"

	"github.com/splee/ribbit/internal/event"
	"github.com/splee/ribbit/internal/extract"
	"github.com/splee/ribbit/internal/parse"
	"github.com/splee/ribbit/internal/store"
)

// MailSource yields raw notification messages. *mailbox.Session is
// the production implementation.
type MailSource interface {
	Search(includeSeen bool) ([]imap.UID, error)
	Fetch(uid imap.UID) ([]byte, error)
}

// Options controls a single Run.
type Options struct {
	// IncludeSeen fetches already-read messages as well.
	IncludeSeen bool

	// Limit caps the number of messages processed; 0 means all.
	Limit int

	// Header emits a CSV header row before the first record.
	Header bool
}

// Pipeline drives one fetch-parse-write run. Events go to Out as CSV;
// diagnostics go to Log. Store may be nil, disabling persistence and
// cross-run dedup.
type Pipeline struct {
	Source MailSource
	Store  store.Store
	Out    io.Writer
	Log    io.Writer

	Options Options
}

// Run processes every matching message serially, in mailbox order.
// Malformed messages are reported and skipped; mailbox-level failures
// abort the run. Returns the number of events written.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	uids, err := p.Source.Search(p.Options.IncludeSeen)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(p.Log, "Found %d emails...\n", len(uids))

	if p.Options.Limit > 0 && len(uids) > p.Options.Limit {
		uids = uids[:p.Options.Limit]
	}

	w := csv.NewWriter(p.Out)
	if p.Options.Header {
		if err := w.Write(event.Columns); err != nil {
			return 0, fmt.Errorf("writing CSV header: %w", err)
		}
	}

	warnf := func(format string, args ...any) {
		fmt.Fprintf(p.Log, format+"\n", args...)
	}

	written := 0
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		// A fetch failure means the connection is gone; that aborts
		// the run, unlike a message that merely fails to parse.
		raw, err := p.Source.Fetch(uid)
		if err != nil {
			// Keep the rows already produced; partial output stays.
			w.Flush()
			return written, fmt.Errorf("fetching message UID %d: %w", uid, err)
		}

		n, err := p.processMessage(ctx, raw, w, warnf)
		if err != nil {
			warnf("skipping message UID %d: %v", uid, err)
			continue
		}
		written += n
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("flushing CSV output: %w", err)
	}

	return written, nil
}

// processMessage handles one fetched message. Its error means that
// message is skipped, not that the run aborts.
func (p *Pipeline) processMessage(
	ctx context.Context, raw []byte, w *csv.Writer, warnf parse.WarnFunc,
) (int, error) {
	content, err := extract.Message(raw)
	if err != nil {
		return 0, err
	}

	if p.Store != nil {
		done, err := p.Store.IsProcessed(ctx, content.MessageID)
		if err != nil {
			return 0, err
		}
		if done {
			warnf("already processed %s, skipping", content.MessageID)
			return 0, nil
		}
	}

	events, err := parse.Events(content.HTML, content.Date, warnf)
	if err != nil {
		return 0, err
	}

	// Persist before emitting: a store failure then skips the message
	// with no rows written, so the rerun cannot produce duplicates.
	if p.Store != nil {
		if err := p.Store.SaveEvents(ctx, content.MessageID, events); err != nil {
			return 0, err
		}
		if err := p.Store.MarkProcessed(ctx, content.MessageID); err != nil {
			return 0, err
		}
	}

	for _, e := range events {
		if err := w.Write(e.Record()); err != nil {
			return 0, fmt.Errorf("writing CSV row: %w", err)
		}
	}

	return len(events), nil
}
