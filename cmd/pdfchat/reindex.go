package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/pdf-chat-server/internal/app"
	"github.com/bull/pdf-chat-server/internal/filestore"
	"github.com/bull/pdf-chat-server/internal/ingest"
	"github.com/bull/pdf-chat-server/internal/queue"
	"github.com/bull/pdf-chat-server/internal/storage"
)

var reindexAll bool

var reindexCmd = &cobra.Command{
	Use:   "reindex [document-id...]",
	Short: "Re-ingest stored PDFs",
	Long: `Runs ingestion again for stored uploads, overwriting their records.

Use this for uploads that were stored but never queued (the server answered
503), for documents whose ingestion was interrupted, and after changing the
embedding model. Page records are keyed by document and page number, so
re-running never duplicates them.

Filename and upload date are kept from the existing Document record. Files
that were never ingested get "<id>.pdf" and the current time.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexAll, "all", false, "re-ingest every stored upload")
}

func runReindex(cmd *cobra.Command, args []string) error {
	if reindexAll == (len(args) > 0) {
		return errors.New("pass document ids or --all, not both")
	}

	ctx := cmd.Context()
	start := time.Now()

	_, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids := args
	if reindexAll {
		ids, err = a.Files.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list stored files: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Re-ingesting %d document(s)...\n\n", len(ids))

	var failed int
	for _, id := range ids {
		job, err := jobFor(ctx, a, id)
		if err != nil {
			fmt.Fprintf(out, "  - %s: %v\n", id, err)
			failed++
			continue
		}
		result := a.Pipeline.Ingest(ctx, job)
		printResult(out, job, result)
		if result.Outcome() != ingest.OutcomeComplete {
			failed++
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Reindex complete: %d/%d succeeded in %s\n", len(ids)-failed, len(ids), time.Since(start).Round(time.Second))
	if failed > 0 {
		return fmt.Errorf("%d document(s) did not fully ingest", failed)
	}
	return nil
}

// jobFor rebuilds the queue job for a stored upload.
func jobFor(ctx context.Context, a *app.App, id string) (queue.Job, error) {
	rc, _, err := a.Files.Open(ctx, id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return queue.Job{}, errors.New("no stored file")
		}
		return queue.Job{}, err
	}
	rc.Close()

	doc, err := a.Store.GetDocument(ctx, id)
	switch {
	case err == nil:
		return queue.Job{DocumentID: id, Filename: doc.Filename, UploadDate: doc.UploadDate}, nil
	case errors.Is(err, storage.ErrDocumentNotFound):
		return queue.Job{DocumentID: id, Filename: filestore.ObjectName(id), UploadDate: time.Now().UTC()}, nil
	default:
		return queue.Job{}, err
	}
}

func printResult(w io.Writer, job queue.Job, r *ingest.Result) {
	fmt.Fprintf(w, "  %s (%s): %s, %d/%d pages indexed in %s\n",
		job.DocumentID, job.Filename, r.Outcome(), r.IndexedPages, r.PageCount, r.Duration.Round(time.Millisecond))
	if r.ExtractionErr != nil {
		fmt.Fprintf(w, "      extraction: %v\n", r.ExtractionErr)
	}
	if len(r.FailedPages) > 0 {
		fmt.Fprintf(w, "      failed pages: %v\n", r.FailedPages)
	}
}
