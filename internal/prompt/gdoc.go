package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ai2b/zena/internal/logging"
)

// DocReader reads the prompt template from a Google Doc exported as plain
// text. The text is cached: within the TTL the cached copy is returned
// as-is, past it only the document's modifiedTime is checked, and the full
// export runs just when the document actually changed.
type DocReader struct {
	svc   *drive.Service
	docID string
	ttl   time.Duration
	log   *logging.Logger
	now   func() time.Time

	mu           sync.Mutex
	text         string
	modifiedTime string
	fetchedAt    time.Time
}

// NewDocReader creates a reader authenticated with a service account key
// file.
func NewDocReader(ctx context.Context, credentialsFile, docID string, ttl time.Duration, log *logging.Logger) (*DocReader, error) {
	keyJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, keyJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &DocReader{
		svc:   svc,
		docID: docID,
		ttl:   ttl,
		log:   log.Sub("prompt"),
		now:   time.Now,
	}, nil
}

// Text returns the current template text, refreshing from Drive as needed.
func (r *DocReader) Text(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.text != "" && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.text, nil
	}

	// TTL passed: a metadata call is much cheaper than a full export
	meta, err := r.svc.Files.Get(r.docID).Fields("modifiedTime").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		if r.text != "" {
			r.log.Warn().Err(err).Msg("drive metadata check failed, serving cached prompt")
			return r.text, nil
		}
		return "", fmt.Errorf("fetching doc metadata: %w", err)
	}

	if r.text != "" && meta.ModifiedTime == r.modifiedTime {
		r.fetchedAt = r.now()
		return r.text, nil
	}

	resp, err := r.svc.Files.Export(r.docID, "text/plain").Context(ctx).Download()
	if err != nil {
		if r.text != "" {
			r.log.Warn().Err(err).Msg("doc export failed, serving cached prompt")
			return r.text, nil
		}
		return "", fmt.Errorf("exporting doc: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading doc export: %w", err)
	}

	r.text = string(body)
	r.modifiedTime = meta.ModifiedTime
	r.fetchedAt = r.now()
	r.log.Info().Str("doc_id", r.docID).Int("bytes", len(body)).Msg("prompt template refreshed")
	return r.text, nil
}
