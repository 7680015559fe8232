package storage

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

// DeliverableArchiver собирает файлы сдач в один zip архив. Файлы
// скачиваются по URL из файлового сервиса платформы; сам движок блобы
// не хранит.
type DeliverableArchiver struct {
	client       *http.Client
	maxFileBytes int64
}

// NewDeliverableArchiver создаёт архиватор.
func NewDeliverableArchiver(timeout time.Duration, maxFileMB int64) *DeliverableArchiver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DeliverableArchiver{
		client:       &http.Client{Timeout: timeout},
		maxFileBytes: maxFileMB * 1024 * 1024,
	}
}

// WriteZip скачивает файлы и пишет zip в w. Файлы без расширения
// получают его по сигнатуре содержимого.
func (a *DeliverableArchiver) WriteZip(ctx context.Context, files []models.DeliverableFile, w io.Writer) error {
	zw := zip.NewWriter(w)

	seen := make(map[string]int)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.addFile(ctx, zw, f, seen); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("storage: не удалось закрыть архив: %w", err)
	}
	return nil
}

func (a *DeliverableArchiver) addFile(ctx context.Context, zw *zip.Writer, f models.DeliverableFile, seen map[string]int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("storage: невалидный URL файла %q: %w", f.URL, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage: не удалось скачать файл %q: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storage: файл %q недоступен: статус %d", f.URL, resp.StatusCode)
	}

	limited := io.LimitedReader{R: resp.Body, N: a.maxFileBytes + 1}
	data, err := io.ReadAll(&limited)
	if err != nil {
		return fmt.Errorf("storage: ошибка чтения файла %q: %w", f.URL, err)
	}
	if int64(len(data)) > a.maxFileBytes {
		return fmt.Errorf("storage: файл %q превышает лимит %d байт", f.URL, a.maxFileBytes)
	}

	name := entryName(f, data, seen)
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("storage: не удалось добавить %q в архив: %w", name, err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("storage: ошибка записи %q в архив: %w", name, err)
	}
	return nil
}

// entryName выбирает имя записи в архиве: санитизация, расширение по
// сигнатуре для безымянных файлов, суффикс при коллизиях.
func entryName(f models.DeliverableFile, data []byte, seen map[string]int) string {
	// filepath.Base("") возвращает ".", поэтому проверяется и точка.
	name := sanitizeFilename(f.Name)
	if name == "" || name == "." {
		name = sanitizeFilename(filepath.Base(f.URL))
	}
	if name == "" || name == "." {
		name = "deliverable"
	}

	if filepath.Ext(name) == "" {
		if kind, err := filetype.Match(data); err == nil && kind.Extension != "unknown" && kind.Extension != "" {
			name = name + "." + kind.Extension
		}
	}

	seen[name]++
	if n := seen[name]; n > 1 {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		name = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	return name
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}
