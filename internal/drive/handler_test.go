package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
)

type fakeSource struct {
	folders  map[string]string
	files    map[string][]*File
	contents map[string]string
}

func (f *fakeSource) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	return f.files[folderID], nil
}

func (f *fakeSource) FindFolderByPath(ctx context.Context, path string) (string, error) {
	id, ok := f.folders[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, path)
	}
	return id, nil
}

func (f *fakeSource) GetFile(ctx context.Context, fileID string) (*File, error) {
	for _, files := range f.files {
		for _, file := range files {
			if file.ID == fileID {
				return file, nil
			}
		}
	}
	return nil, errors.New("file not found")
}

func (f *fakeSource) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	_, err := io.WriteString(w, f.contents[fileID])
	return err
}

var errBadCatalog = errors.New("bad catalog")

type fakeSaver struct {
	shopID   string
	filename string
	body     string
}

func (s *fakeSaver) ImportCatalog(ctx context.Context, shopID, filename string, r io.Reader) (*domain.CatalogSnapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if strings.Contains(string(data), "garbage") {
		return nil, errBadCatalog
	}
	s.shopID, s.filename, s.body = shopID, filename, string(data)
	return &domain.CatalogSnapshot{
		ShopID:    shopID,
		Products:  []domain.ProductInput{{ProductID: "1", Name: "Catsup", Price: 18, Cost: 12}},
		UpdatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func newTestSource() *fakeSource {
	return &fakeSource{
		folders: map[string]string{"catalogs/shop-1": "folder-1"},
		files: map[string][]*File{
			"folder-1": {
				{ID: "f-old", Name: "catalog-may.csv", ModifiedTime: "2026-05-01T00:00:00Z"},
				{ID: "f-new", Name: "catalog-june.XLSX", ModifiedTime: "2026-06-01T00:00:00Z"},
				{ID: "f-notes", Name: "notes.txt", ModifiedTime: "2026-07-01T00:00:00Z"},
				{ID: "f-bad", Name: "broken.csv", ModifiedTime: "2026-01-01T00:00:00Z"},
				{ID: "f-huge", Name: "huge.csv", ModifiedTime: "2025-01-01T00:00:00Z", Size: 1 << 30},
			},
			"root": {},
		},
		contents: map[string]string{
			"f-old": "old", "f-new": "new", "f-notes": "notes", "f-bad": "garbage",
		},
	}
}

func newTestRouter(source *fakeSource, saver *fakeSaver) *mux.Router {
	router := mux.NewRouter()
	h := NewHandler(source, NewCatalogImporter(source, saver), func(err error) bool {
		return errors.Is(err, errBadCatalog)
	})
	h.RegisterRoutes(router)
	return router
}

func TestCatalogImporter_ImportLatest(t *testing.T) {
	source := newTestSource()
	saver := &fakeSaver{}
	imp := NewCatalogImporter(source, saver)

	res, err := imp.ImportLatest(context.Background(), "catalogs/shop-1", "SHOP-1")
	require.NoError(t, err)
	assert.Equal(t, "f-new", res.File.ID)
	assert.Equal(t, "catalog-june.XLSX", saver.filename)
	assert.Equal(t, "new", saver.body)
	assert.Equal(t, "SHOP-1", res.Snapshot.ShopID)

	_, err = imp.ImportLatest(context.Background(), "", "SHOP-1")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestCatalogImporter_ImportFileRejectsOtherFormats(t *testing.T) {
	imp := NewCatalogImporter(newTestSource(), &fakeSaver{})

	_, err := imp.ImportFile(context.Background(), "f-notes", "SHOP-1")
	assert.ErrorIs(t, err, ErrNoCatalogFile)
}

func TestCatalogImporter_RejectsOversizedFiles(t *testing.T) {
	saver := &fakeSaver{}
	imp := NewCatalogImporter(newTestSource(), saver)

	_, err := imp.ImportFile(context.Background(), "f-huge", "SHOP-1")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// Drive does not always report a size, so the download itself is capped too.
	imp.maxBytes = 2
	_, err = imp.ImportFile(context.Background(), "f-old", "SHOP-1")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, saver.body)

	imp.maxBytes = 3
	_, err = imp.ImportFile(context.Background(), "f-old", "SHOP-1")
	require.NoError(t, err)
	assert.Equal(t, "old", saver.body)
}

func TestHandler_ListFiles(t *testing.T) {
	router := newTestRouter(newTestSource(), &fakeSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/drive/files?path=catalogs/shop-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var files []File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 5)

	req = httptest.NewRequest(http.MethodGet, "/api/drive/files?path=missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ImportCatalog(t *testing.T) {
	saver := &fakeSaver{}
	router := newTestRouter(newTestSource(), saver)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"by file id", "?fileId=f-old&shopId=SHOP-1", http.StatusOK},
		{"latest in folder", "?path=catalogs/shop-1&shopId=SHOP-1", http.StatusOK},
		{"missing shop", "?fileId=f-old", http.StatusBadRequest},
		{"missing source", "?shopId=SHOP-1", http.StatusBadRequest},
		{"not a catalog", "?fileId=f-notes&shopId=SHOP-1", http.StatusNotFound},
		{"bad contents", "?fileId=f-bad&shopId=SHOP-1", http.StatusBadRequest},
		{"unknown file", "?fileId=nope&shopId=SHOP-1", http.StatusInternalServerError},
		{"too large", "?fileId=f-huge&shopId=SHOP-1", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/drive/catalog/import"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/drive/catalog/import?fileId=f-old&shopId=SHOP-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		File    File                   `json:"file"`
		Catalog domain.CatalogSnapshot `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "f-old", body.File.ID)
	assert.Equal(t, "SHOP-9", body.Catalog.ShopID)
	assert.Equal(t, "SHOP-9", saver.shopID)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `Shop\'s files`, escapeQuery("Shop's files"))
}
