package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"govharvest/internal/config"
	"govharvest/internal/errlog"
	"govharvest/internal/models"
	"govharvest/internal/pdftext"
)

// RecordSink mirrors serialized records to an external store. The
// on-disk JSON tree stays the canonical archive either way.
type RecordSink interface {
	SaveCase(ctx context.Context, filename string, rec *models.CaseRecord) error
}

// Serializer turns each downloaded mods.xml into a case JSON record,
// resolving the plain text of the matching PDF along the way.
// Serialization is best effort: a failed extraction still persists a
// partial record and the failure goes to the exception log.
type Serializer struct {
	Layout    config.Layout
	OCR       config.OCRConfig
	Workers   int
	Errlog    *errlog.Logger
	Extractor *Extractor
	Sink      RecordSink
}

func NewSerializer(cfg *config.Config, layout config.Layout, errs *errlog.Logger, sink RecordSink) *Serializer {
	return &Serializer{
		Layout:    layout,
		OCR:       cfg.OCR,
		Workers:   cfg.Workers,
		Errlog:    errs,
		Extractor: &Extractor{Collection: cfg.Search.Collection},
		Sink:      sink,
	}
}

// AllXMLPaths lists every downloaded metadata file of this run.
func (s *Serializer) AllXMLPaths() ([]string, error) {
	return filepath.Glob(filepath.Join(s.Layout.CategoryDir(), "*", s.Layout.RunHash, "xml", "*.xml"))
}

// SerializeFile builds the JSON record next to one metadata file.
func (s *Serializer) SerializeFile(ctx context.Context, xmlPath string) error {
	filename := strings.TrimSuffix(filepath.Base(xmlPath), filepath.Ext(xmlPath))
	rec := &models.CaseRecord{}

	data, err := os.ReadFile(xmlPath)
	if err != nil {
		s.exception(xmlPath, err.Error(), filename)
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		s.exception(xmlPath, err.Error(), filename)
	} else {
		for _, res := range s.Extractor.Apply(doc, filename, rec) {
			if res.Status == TagMalformed {
				s.exception(xmlPath, fmt.Sprintf("%s: %s", res.Tag, res.Detail), filename)
			}
		}
	}

	runDir := filepath.Dir(filepath.Dir(xmlPath))
	jsonDir := filepath.Join(runDir, "json")
	if err := os.MkdirAll(jsonDir, 0o755); err != nil {
		return fmt.Errorf("creating json dir: %w", err)
	}

	rec.Blocked = false
	pdfPath := filepath.Join(runDir, "pdf", filename+".pdf")
	text, err := pdftext.ExtractText(pdfPath, filepath.Join(runDir, "text"))
	if err != nil {
		s.exception(pdfPath, err.Error(), filename)
	}
	rec.PageCount = pdftext.PageCount(pdfPath)

	plain, needsOCR, citation := pdftext.CheckOCR(text, rec.CourtType, rec.PreferredCitation)
	rec.OCR = needsOCR
	if needsOCR && s.OCR.Enabled {
		ocrText, err := pdftext.OCRToText(ctx, pdfPath, s.OCR, s.Workers)
		if err != nil {
			s.exception(xmlPath, err.Error(), filename)
		}
		plain = pdftext.StripHeader(ocrText, citation)
	}
	rec.PlainText = plain

	jsonPath := filepath.Join(jsonDir, filename+".json")
	out, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", filename, err)
	}
	if err := os.WriteFile(jsonPath, out, 0o644); err != nil {
		return fmt.Errorf("writing record %s: %w", filename, err)
	}

	switch {
	case rec.PageCount == 0:
		s.processLog(jsonPath, "Not processed")
	case len(plain) == 0:
		s.processLog(jsonPath, "PDF is problematic")
	}

	if s.Sink != nil {
		if err := s.Sink.SaveCase(ctx, filename, rec); err != nil {
			log.Error().Err(err).Str("case", filename).Msg("record not mirrored")
		}
	}
	log.Debug().Str("case", filename).Bool("ocr", rec.OCR).Msg("serialized")
	return nil
}

// BulkSerialize pools SerializeFile over many metadata files.
func (s *Serializer) BulkSerialize(ctx context.Context, xmlPaths []string) {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := s.SerializeFile(ctx, path); err != nil {
					log.Error().Err(err).Str("path", path).Msg("serialization failed")
				}
			}
		}()
	}
	for _, path := range xmlPaths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
}

func (s *Serializer) exception(path, detail, filename string) {
	if err := s.Errlog.Append("exception-log", []string{path, detail}); err != nil {
		log.Error().Err(err).Str("case", filename).Msg("exception not logged")
	}
}

func (s *Serializer) processLog(jsonPath, detail string) {
	if err := s.Errlog.Append("process-log", []string{jsonPath, detail}); err != nil {
		log.Error().Err(err).Msg("process log write failed")
	}
}
