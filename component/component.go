// Package component persists captured components: an extraction result
// (markup plus collected styles) saved under an id together with the asset
// files it references.
package component

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/drover/assets"
	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/store"
)

// ErrNotFound is returned when no component has the requested id.
var ErrNotFound = errors.New("component not found")

// Component is one captured component with its files.
type Component struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	Selector  string         `json:"selector"`
	HTML      string         `json:"html"`
	CSS       string         `json:"css,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Files     []File         `json:"files,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// File is one stored asset row. Body is omitted from listings.
type File struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	ByteSize    int64     `json:"byte_size"`
	Body        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists components and their files. Asset downloads are bounded
// by the fetcher's timeout and run in parallel with a small cap.
type Store struct {
	db      *sql.DB
	fetcher *assets.Fetcher
}

// NewStore creates a component store.
func NewStore(st *store.Store, fetcher *assets.Fetcher) *Store {
	return &Store{db: st.DB(), fetcher: fetcher}
}

// Save persists a component captured from an extraction result and
// downloads the image assets its markup references. Asset failures are
// logged and skipped; the component itself is always saved.
func (s *Store) Save(ctx context.Context, name string, req *models.ExtractionRequest, html, css string, metadata map[string]any) (*Component, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewServiceError(models.ErrCodeInvalidInput, "component name must not be empty", nil)
	}

	now := time.Now()
	comp := &Component{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       req.URL,
		Selector:  req.Selector,
		HTML:      html,
		CSS:       css,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to serialize metadata", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_components
			(id, name, url, selector, html, css, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		comp.ID, comp.Name, comp.URL, comp.Selector, comp.HTML, comp.CSS,
		string(metaJSON), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to save component", err)
	}

	comp.Files = s.downloadAssets(ctx, comp)
	return comp, nil
}

// downloadAssets resolves the image URLs referenced by the component's
// markup and stores each downloaded body as a component_files row.
func (s *Store) downloadAssets(ctx context.Context, comp *Component) []File {
	urls := assetURLs(comp.HTML, comp.URL)
	if len(urls) == 0 {
		return nil
	}

	var mu sync.Mutex
	var files []File

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, assetURL := range urls {
		u := assetURL
		eg.Go(func() error {
			asset, err := s.fetcher.Fetch(egCtx, u)
			if err != nil {
				slog.Warn("asset download failed, skipping", "url", u, "error", err)
				return nil
			}
			file := File{
				ID:          uuid.NewString(),
				FileName:    fileNameFor(u),
				ContentType: asset.ContentType,
				SourceURL:   u,
				ByteSize:    int64(len(asset.Body)),
				Body:        asset.Body,
				CreatedAt:   time.Now(),
			}
			if _, err := s.db.ExecContext(ctx, `
				INSERT INTO component_files
					(id, component_id, file_name, content_type, source_url, body, byte_size, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				file.ID, comp.ID, file.FileName, file.ContentType,
				file.SourceURL, file.Body, file.ByteSize, file.CreatedAt.UnixMilli()); err != nil {
				slog.Warn("failed to persist asset", "url", u, "error", err)
				return nil
			}
			mu.Lock()
			files = append(files, file)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return files
}

// Get loads one component with its file metadata (bodies excluded).
func (s *Store) Get(ctx context.Context, id string) (*Component, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, selector, html, css, metadata, created_at, updated_at
		FROM cached_components WHERE id = ?`, id)

	comp := &Component{}
	var metaJSON string
	var createdAt, updatedAt int64
	err := row.Scan(&comp.ID, &comp.Name, &comp.URL, &comp.Selector,
		&comp.HTML, &comp.CSS, &metaJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to load component", err)
	}
	comp.CreatedAt = time.UnixMilli(createdAt)
	comp.UpdatedAt = time.UnixMilli(updatedAt)
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &comp.Metadata)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, content_type, source_url, byte_size, created_at
		FROM component_files WHERE component_id = ?`, id)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to load component files", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f File
		var fCreated int64
		if err := rows.Scan(&f.ID, &f.FileName, &f.ContentType, &f.SourceURL, &f.ByteSize, &fCreated); err != nil {
			return nil, models.NewServiceError(models.ErrCodePersistence, "failed to scan component file", err)
		}
		f.CreatedAt = time.UnixMilli(fCreated)
		comp.Files = append(comp.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to load component files", err)
	}
	return comp, nil
}

// GetFile loads one stored asset with its body.
func (s *Store) GetFile(ctx context.Context, id string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, content_type, source_url, body, byte_size, created_at
		FROM component_files WHERE id = ?`, id)

	var f File
	var created int64
	err := row.Scan(&f.ID, &f.FileName, &f.ContentType, &f.SourceURL, &f.Body, &f.ByteSize, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to load file", err)
	}
	f.CreatedAt = time.UnixMilli(created)
	return &f, nil
}

// List returns all components without markup bodies or files.
func (s *Store) List(ctx context.Context) ([]*Component, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, selector, created_at, updated_at
		FROM cached_components ORDER BY created_at DESC`)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to list components", err)
	}
	defer rows.Close()

	var out []*Component
	for rows.Next() {
		comp := &Component{}
		var createdAt, updatedAt int64
		if err := rows.Scan(&comp.ID, &comp.Name, &comp.URL, &comp.Selector, &createdAt, &updatedAt); err != nil {
			return nil, models.NewServiceError(models.ErrCodePersistence, "failed to scan component", err)
		}
		comp.CreatedAt = time.UnixMilli(createdAt)
		comp.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to list components", err)
	}
	return out, nil
}

// Delete removes a component and its files in one transaction.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM component_files WHERE component_id = ?`, id); err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to delete component files", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cached_components WHERE id = ?`, id)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to delete component", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// assetURLs extracts absolute image URLs referenced by the markup,
// resolving relative references against the source URL.
func assetURLs(markup, sourceURL string) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if src == "" {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	})
	return urls
}

// fileNameFor derives a stored file name from the asset URL.
func fileNameFor(assetURL string) string {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "asset"
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	name := parts[len(parts)-1]
	if name == "" {
		return "asset"
	}
	return name
}
