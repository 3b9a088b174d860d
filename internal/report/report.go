// Package report exports a finished analysis to disk: a JSON document, the
// two chart images and every decodable image the service returned. Each
// export gets its own directory and an entry in the index file.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/csheth/leafscan/internal/analysis"
	"github.com/csheth/leafscan/internal/chart"
	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/projector"
	"github.com/csheth/leafscan/internal/thumb"
)

const (
	ReportFile         = "report.json"
	ClassificationFile = "classification.png"
	SeverityFile       = "severity.png"
	IndexFile          = "index.json"
)

// Snapshot is what gets exported.
type Snapshot struct {
	CapturedAt time.Time
	FileName   string
	MIMEType   string
	Source     []byte
	Result     *analysis.Result
	Detail     string
	HasDetail  bool
}

// Document is the content of report.json.
type Document struct {
	ID         string            `json:"id"`
	CapturedAt time.Time         `json:"capturedAt"`
	FileName   string            `json:"fileName"`
	MIMEType   string            `json:"mimeType,omitempty"`
	Fields     []projector.Field `json:"fields"`
	Result     *analysis.Result  `json:"result"`
	Detail     *string           `json:"detail,omitempty"`
	Files      []string          `json:"files"`
	Skipped    []string          `json:"skipped,omitempty"`
}

// Entry is one line of the export index.
type Entry struct {
	ID             string    `json:"id"`
	Dir            string    `json:"dir"`
	CapturedAt     time.Time `json:"capturedAt"`
	FileName       string    `json:"fileName"`
	PredictedClass string    `json:"predictedClass"`
	Severity       float64   `json:"severity"`
}

// Save writes snap into a fresh sub-directory of dir and returns its path.
func Save(dir string, snap Snapshot) (string, error) {
	const op = "report.save"
	if snap.Result == nil {
		return "", apperrors.New(apperrors.KindValidation, op, "No analysis data available")
	}
	if dir == "" {
		return "", apperrors.New(apperrors.KindConfig, op, "no export directory configured")
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}

	id := uuid.NewString()[:8]
	out := filepath.Join(dir, snap.CapturedAt.Format("20060102-150405")+"-"+id)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, op, "failed to create report directory", err)
	}

	doc := Document{
		ID:         id,
		CapturedAt: snap.CapturedAt,
		FileName:   snap.FileName,
		MIMEType:   snap.MIMEType,
		Fields:     projector.Fields(snap.Result),
		Result:     snap.Result,
	}
	if snap.HasDetail {
		text := snap.Detail
		doc.Detail = &text
	}

	if len(snap.Source) > 0 {
		name := "source" + mimetype.Detect(snap.Source).Extension()
		if err := os.WriteFile(filepath.Join(out, name), snap.Source, 0o644); err != nil {
			return "", apperrors.Wrap(apperrors.KindStorage, op, "failed to write source image", err)
		}
		doc.Files = append(doc.Files, name)
	}

	charts := []struct {
		name  string
		write func(io.Writer, projector.Series) error
		data  projector.Series
	}{
		{ClassificationFile, chart.WriteBarPNG, projector.Bars(snap.Result)},
		{SeverityFile, chart.WriteDonutPNG, projector.Donut(snap.Result)},
	}
	for _, c := range charts {
		var buf bytes.Buffer
		if err := c.write(&buf, c.data); err != nil {
			if !errors.Is(err, chart.ErrEmptySeries) {
				log.Printf("[report] render %s: %v", c.name, err)
			}
			doc.Skipped = append(doc.Skipped, c.name)
			continue
		}
		if err := os.WriteFile(filepath.Join(out, c.name), buf.Bytes(), 0o644); err != nil {
			return "", apperrors.Wrap(apperrors.KindStorage, op, "failed to write chart", err)
		}
		doc.Files = append(doc.Files, c.name)
	}

	for _, slot := range projector.Images(snap.Result) {
		if !slot.Present {
			continue
		}
		raw, err := thumb.Payload(slot.Encoded)
		if err != nil {
			log.Printf("[report] skip %s: %v", slot.Field, err)
			doc.Skipped = append(doc.Skipped, string(slot.Field))
			continue
		}
		name := string(slot.Field) + mimetype.Detect(raw).Extension()
		if err := os.WriteFile(filepath.Join(out, name), raw, 0o644); err != nil {
			return "", apperrors.Wrap(apperrors.KindStorage, op, "failed to write image", err)
		}
		doc.Files = append(doc.Files, name)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, op, "failed to encode report", err)
	}
	if err := os.WriteFile(filepath.Join(out, ReportFile), data, 0o644); err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, op, "failed to write report", err)
	}

	entry := Entry{
		ID:             id,
		Dir:            filepath.Base(out),
		CapturedAt:     snap.CapturedAt,
		FileName:       snap.FileName,
		PredictedClass: snap.Result.PredictedClass(),
		Severity:       snap.Result.Severity(),
	}
	if err := appendEntry(filepath.Join(dir, IndexFile), entry); err != nil {
		log.Printf("[report] update index: %v", err)
	}
	log.Printf("[report] saved %s (%d files)", out, len(doc.Files)+1)
	return out, nil
}

// Load returns the export index of dir, oldest first. A missing index is empty.
func Load(dir string) ([]Entry, error) {
	entries, err := loadEntries(filepath.Join(dir, IndexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "report.load", "failed to read index", err)
	}
	return entries, nil
}

// ReadDocument parses a report.json written by Save.
func ReadDocument(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, apperrors.Wrap(apperrors.KindStorage, "report.read", "failed to read report", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, apperrors.Wrap(apperrors.KindStorage, "report.read", "failed to parse report", err)
	}
	return doc, nil
}

func appendEntry(path string, entry Entry) error {
	entries, err := loadEntries(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
