package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

func TestDeliverableArchiver_WriteZip(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/report.pdf":
			w.Write([]byte("pdf content"))
		case "/mockup":
			w.Write(pngHeader)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	archiver := NewDeliverableArchiver(5*time.Second, 10)

	var buf bytes.Buffer
	err := archiver.WriteZip(context.Background(), []models.DeliverableFile{
		{Name: "report.pdf", URL: srv.URL + "/report.pdf"},
		{Name: "report.pdf", URL: srv.URL + "/report.pdf"},
		{Name: "", URL: srv.URL + "/mockup"},
	}, &buf)
	assert.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"report.pdf", "report_2.pdf", "mockup.png"}, names)
}

func TestDeliverableArchiver_WriteZip_UnavailableFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	archiver := NewDeliverableArchiver(5*time.Second, 10)

	var buf bytes.Buffer
	err := archiver.WriteZip(context.Background(), []models.DeliverableFile{
		{Name: "gone.zip", URL: srv.URL + "/gone.zip"},
	}, &buf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недоступен")
}

func TestDeliverableArchiver_WriteZip_FileTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 2*1024*1024))
	}))
	defer srv.Close()

	archiver := NewDeliverableArchiver(5*time.Second, 1)

	var buf bytes.Buffer
	err := archiver.WriteZip(context.Background(), []models.DeliverableFile{
		{Name: "huge.bin", URL: srv.URL + "/huge.bin"},
	}, &buf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "превышает лимит")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "design.fig", sanitizeFilename("design.fig"))
}
