package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/export"
)

// Export formats supported for report downloads.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type summaryDatasetBuilder interface {
	SummaryDataset(ctx context.Context, semesterID int64, from, to time.Time) (*export.Dataset, error)
}

type rosterDatasetBuilder interface {
	RosterDataset(ctx context.Context, semesterID int64) (*export.Dataset, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string) (exportID, relPath string, expiresAt time.Time, err error)
}

// ExportArtifact describes a rendered file ready for signed download.
type ExportArtifact struct {
	ExportID    string    `json:"export_id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	ContentType string    `json:"content_type"`
}

// ExportService renders report summaries to CSV or PDF, stores them on disk
// and hands out signed single-file download tokens.
type ExportService struct {
	reports  summaryDatasetBuilder
	students rosterDatasetBuilder
	storage  exportStorage
	signer   downloadSigner
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(reports summaryDatasetBuilder, students rosterDatasetBuilder, storage exportStorage, signer downloadSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports:  reports,
		students: students,
		storage:  storage,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// ExportSummary renders a semester summary in the requested format and
// returns a signed download artifact.
func (s *ExportService) ExportSummary(ctx context.Context, semesterID int64, from, to time.Time, format string) (*ExportArtifact, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	dataset, err := s.reports.SummaryDataset(ctx, semesterID, from, to)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Attendance Summary %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	stem := fmt.Sprintf("attendance-summary-%d", semesterID)
	return s.publish(dataset, title, format, stem)
}

// ExportRoster renders a semester's student roster as a downloadable CSV.
func (s *ExportService) ExportRoster(ctx context.Context, semesterID int64) (*ExportArtifact, error) {
	dataset, err := s.students.RosterDataset(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	stem := fmt.Sprintf("roster-%d", semesterID)
	return s.publish(dataset, "", FormatCSV, stem)
}

func (s *ExportService) publish(dataset *export.Dataset, title, format, stem string) (*ExportArtifact, error) {
	var payload []byte
	var contentType string
	var err error
	switch format {
	case FormatCSV:
		payload, err = s.csv.Render(*dataset)
		contentType = "text/csv"
	case FormatPDF:
		payload, err = s.pdf.Render(*dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.New().String()
	filename := fmt.Sprintf("%s-%s.%s", stem, time.Now().UTC().Format("20060102-150405"), format)
	relPath := filepath.Join(exportID, filename)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("export created",
		zap.String("export_id", exportID),
		zap.String("filename", filename),
		zap.String("format", format))

	return &ExportArtifact{
		ExportID:    exportID,
		Filename:    filename,
		Format:      format,
		Token:       token,
		ExpiresAt:   expiresAt,
		ContentType: contentType,
	}, nil
}

// OpenDownload validates a signed token and opens the stored file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, filepath.Base(relPath), nil
}
