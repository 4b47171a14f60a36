package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelfplan/backend-go/internal/catalog"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
)

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrNoCatalogFile  = errors.New("no catalog file found")
	ErrFileTooLarge   = errors.New("catalog file too large")
)

// CatalogSaver stores a parsed catalog file for a shop.
type CatalogSaver interface {
	ImportCatalog(ctx context.Context, shopID, filename string, r io.Reader) (*domain.CatalogSnapshot, error)
}

// ImportResult describes a catalog pulled from Drive.
type ImportResult struct {
	File     *File                   `json:"file"`
	Snapshot *domain.CatalogSnapshot `json:"catalog"`
}

// CatalogImporter pulls CSV/XLSX catalogs out of Drive into a shop's catalog.
type CatalogImporter struct {
	source   FileSource
	saver    CatalogSaver
	maxBytes int
}

func NewCatalogImporter(source FileSource, saver CatalogSaver) *CatalogImporter {
	return &CatalogImporter{source: source, saver: saver, maxBytes: catalog.MaxFileBytes}
}

// ImportFile imports one Drive file as the shop's catalog.
func (i *CatalogImporter) ImportFile(ctx context.Context, fileID, shopID string) (*ImportResult, error) {
	file, err := i.source.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !isCatalogFile(file.Name) {
		return nil, fmt.Errorf("%w: %s is not a csv or xlsx file", ErrNoCatalogFile, file.Name)
	}
	return i.importFile(ctx, file, shopID)
}

// ImportLatest imports the most recently modified catalog file under folderPath.
func (i *CatalogImporter) ImportLatest(ctx context.Context, folderPath, shopID string) (*ImportResult, error) {
	folderID, err := i.source.FindFolderByPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	files, err := i.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var latest *File
	for _, f := range files {
		if !isCatalogFile(f.Name) {
			continue
		}
		// RFC 3339 timestamps from Drive sort lexically.
		if latest == nil || f.ModifiedTime > latest.ModifiedTime {
			latest = f
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w in %q", ErrNoCatalogFile, folderPath)
	}

	return i.importFile(ctx, latest, shopID)
}

func (i *CatalogImporter) importFile(ctx context.Context, file *File, shopID string) (*ImportResult, error) {
	if file.Size > int64(i.maxBytes) {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, file.Name, file.Size)
	}

	buf := &cappedBuffer{limit: i.maxBytes}
	if err := i.source.DownloadFile(ctx, file.ID, buf); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}

	snapshot, err := i.saver.ImportCatalog(ctx, shopID, file.Name, &buf.Buffer)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("shop_id", shopID).
		Str("file_id", file.ID).
		Str("file_name", file.Name).
		Int("products", len(snapshot.Products)).
		Msg("drive catalog imported")

	return &ImportResult{File: file, Snapshot: snapshot}, nil
}

// cappedBuffer fails writes that would grow it past limit bytes.
type cappedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.Len()+len(p) > b.limit {
		return 0, ErrFileTooLarge
	}
	return b.Buffer.Write(p)
}

func isCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".xlsx"
}
