// Package service runs the offline ingestion pipeline: it watches a source
// directory, extracts text from dropped files, embeds it and stores one
// embedding record per document, then archives the file.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"legalrag/loader/extractor"
	"legalrag/loader/internal"
	"legalrag/model"
	"legalrag/store"
	"legalrag/types"
)

// Header/footer crop heights in points, matching the source documents.
const (
	cropTop    = 46.0
	cropBottom = 57.0
)

type Service struct {
	logger   *slog.Logger
	store    store.VectorStorer
	embedder model.EmbedderInterface
	cfg      types.LoaderConfig

	fileMutex       sync.Mutex
	fileFirstSeen   map[string]time.Time
	filesProcessing map[string]bool
}

func New(storer store.VectorStorer, embedder model.EmbedderInterface, cfg types.LoaderConfig) *Service {
	createDirectories(cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir)
	return &Service{
		logger:          slog.Default(),
		store:           storer,
		embedder:        embedder,
		cfg:             cfg,
		fileFirstSeen:   make(map[string]time.Time),
		filesProcessing: make(map[string]bool),
	}
}

func (s *Service) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		s.watchFiles(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.processFiles(ctx, fileChan)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	<-sigch
	s.logger.Info("received shutdown signal, shutting down gracefully")

	cancel()
	signal.Stop(sigch)
	close(sigch)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all workers stopped")
	case <-shutdownCtx.Done():
		s.logger.Warn("timeout waiting for workers, forcing shutdown")
	}

	s.logger.Info("loader service stopped")
}

// watchFiles polls the source directory once a second. A file is handed off
// only after it has sat unmodified for the configured settling time, so
// half-written uploads are never processed.
func (s *Service) watchFiles(ctx context.Context, fileChan chan<- string) {
	s.logger.Info("monitoring folder", "dir", s.cfg.SourceDir)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file watcher stopped")
			return
		case <-ticker.C:
			files, err := os.ReadDir(s.cfg.SourceDir)
			if err != nil {
				s.logger.Error("error reading source directory", "error", err)
				continue
			}

			currentFiles := make(map[string]bool)

			for _, file := range files {
				if file.IsDir() {
					continue
				}

				filePath := filepath.Join(s.cfg.SourceDir, file.Name())
				currentFiles[filePath] = true

				s.fileMutex.Lock()
				if s.filesProcessing[filePath] {
					s.fileMutex.Unlock()
					continue
				}

				firstSeen, seen := s.fileFirstSeen[filePath]
				if !seen {
					s.fileFirstSeen[filePath] = time.Now()
					s.logger.Info("new file detected", "path", filePath)
					s.fileMutex.Unlock()
					continue
				}
				s.fileMutex.Unlock()

				if time.Since(firstSeen) < s.cfg.MonitoringTime {
					continue
				}

				s.fileMutex.Lock()
				s.filesProcessing[filePath] = true
				s.fileMutex.Unlock()

				select {
				case fileChan <- filePath:
				case <-ctx.Done():
					return
				}
			}

			// Drop tracking for files that vanished from the directory.
			s.fileMutex.Lock()
			for filePath := range s.fileFirstSeen {
				if !currentFiles[filePath] {
					delete(s.fileFirstSeen, filePath)
					delete(s.filesProcessing, filePath)
				}
			}
			s.fileMutex.Unlock()
		}
	}
}

func (s *Service) processFiles(ctx context.Context, fileChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file processor stopped")
			return
		case filePath, ok := <-fileChan:
			if !ok {
				return
			}

			s.logger.Info("processing file", "path", filePath)
			if err := s.ingest(ctx, filePath); err != nil {
				s.logger.Error("ingestion failed", "path", filePath, "error", err)
				s.moveTo(filePath, s.cfg.BadDir)
			} else {
				s.moveTo(filePath, s.cfg.ArchiveDir)
			}

			s.fileMutex.Lock()
			delete(s.filesProcessing, filePath)
			delete(s.fileFirstSeen, filePath)
			s.fileMutex.Unlock()
		}
	}
}

// ingest extracts the document text, embeds it and stores one record keyed by
// the filename without its extension.
func (s *Service) ingest(ctx context.Context, filePath string) error {
	mimeType := extractor.MimeForPath(filePath)
	if mimeType == "" {
		return fmt.Errorf("unsupported file extension: %s", filepath.Ext(filePath))
	}

	if mimeType == extractor.MimePDF {
		if err := internal.CropHeaderFooter(filePath, filePath, cropTop, cropBottom); err != nil {
			s.logger.Warn("header/footer crop failed, extracting uncropped", "path", filePath, "error", err)
		}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	text, err := extractor.Extract(data, mimeType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if text == extractor.Unsupported || strings.TrimSpace(text) == "" {
		return fmt.Errorf("no extractable text")
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	if embedding == nil {
		return fmt.Errorf("no embedding available")
	}

	filename := filepath.Base(filePath)
	record := types.EmbeddingRecord{
		ID:       strings.TrimSuffix(filename, filepath.Ext(filename)),
		Vector:   embedding,
		Content:  text,
		Metadata: map[string]string{"source": filename},
	}

	stored, err := s.store.Add(ctx, []types.EmbeddingRecord{record})
	if err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	if stored == 0 {
		return fmt.Errorf("record rejected by store")
	}

	s.logger.Info("document ingested", "id", record.ID, "chars", len(text))
	return nil
}

// moveTo copies the file into a dated subdirectory and removes the original.
// Name collisions get a numeric suffix.
func (s *Service) moveTo(filePath, baseDir string) {
	destDir := filepath.Join(baseDir, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		s.logger.Error("error creating archive directory", "error", err)
		return
	}

	destPath := filepath.Join(destDir, filepath.Base(filePath))
	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(destPath)
		baseName := strings.TrimSuffix(filepath.Base(filePath), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
		counter++
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		s.logger.Error("error reading file for archive", "error", err)
		return
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		s.logger.Error("error writing archive file", "error", err)
		return
	}
	os.Remove(filePath)

	s.logger.Info("file archived", "dest", destPath)
}

func createDirectories(dirs ...string) {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Default().Error("error creating directory", "dir", dir, "error", err)
		}
	}
}
