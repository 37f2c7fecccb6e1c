package pdftext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"govharvest/internal/config"
)

type pageText struct {
	page int
	text string
}

// OCRToText rasterizes the PDF in page batches with pdftoppm and runs
// tesseract over every image, reassembling the pages in order. Engine
// errors do not discard the pages already recognized: the partial text
// comes back along with the first error.
func OCRToText(ctx context.Context, pdfPath string, cfg config.OCRConfig, workers int) (string, error) {
	pageCount := PageCount(pdfPath)
	if pageCount == 0 {
		return "", nil
	}
	if workers < 1 {
		workers = 1
	}

	type batch struct{ first, last int }
	var batches []batch
	for first := 1; first <= pageCount; first += cfg.BatchPages {
		last := first + cfg.BatchPages - 1
		if last > pageCount {
			last = pageCount
		}
		batches = append(batches, batch{first, last})
	}

	jobs := make(chan batch)
	var (
		mu       sync.Mutex
		pages    []pageText
		firstErr error
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				texts, err := ocrBatch(ctx, pdfPath, b.first, b.last, cfg)
				mu.Lock()
				pages = append(pages, texts...)
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	for _, b := range batches {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.text
	}
	return strings.Join(texts, "\n\n"), firstErr
}

func ocrBatch(ctx context.Context, pdfPath string, first, last int, cfg config.OCRConfig) ([]pageText, error) {
	tmp, err := os.MkdirTemp("", "ocr")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	args := []string{
		"-r", strconv.Itoa(cfg.DPI),
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
	}
	if cfg.Grayscale {
		args = append(args, "-gray")
	} else {
		args = append(args, "-jpeg")
	}
	args = append(args, pdfPath, filepath.Join(tmp, "page"))
	if out, err := exec.CommandContext(ctx, "pdftoppm", args...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm pages %d-%d: %s", first, last, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(filepath.Join(tmp, "page*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(images)

	var texts []pageText
	for i, img := range images {
		out, err := exec.CommandContext(ctx, "tesseract", img, "stdout",
			"-l", "eng",
			"--oem", strconv.Itoa(cfg.EngineMode),
			"--dpi", strconv.Itoa(cfg.DPI)).Output()
		if err != nil {
			return texts, fmt.Errorf("tesseract page %d: %w", first+i, err)
		}
		texts = append(texts, pageText{page: first + i, text: string(out)})
	}
	return texts, nil
}
