package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/pkg/export"
	"github.com/rollbook/rollbook-api/pkg/storage"
)

type stubDatasetBuilder struct {
	dataset export.Dataset
}

func (s *stubDatasetBuilder) SummaryDataset(_ context.Context, _ int64, _, _ time.Time) (*export.Dataset, error) {
	dataset := s.dataset
	return &dataset, nil
}

func (s *stubDatasetBuilder) RosterDataset(_ context.Context, _ int64) (*export.Dataset, error) {
	dataset := s.dataset
	return &dataset, nil
}

func newExportFixture(t *testing.T) (*ExportService, *stubDatasetBuilder) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	builder := &stubDatasetBuilder{dataset: export.Dataset{
		Headers: []string{"Roll Number", "Name"},
		Rows:    [][]string{{"001", "Airi Satou"}},
	}}
	return NewExportService(builder, builder, store, signer, nil), builder
}

func TestExportSummaryCSVRoundTrip(t *testing.T) {
	svc, _ := newExportFixture(t)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	artifact, err := svc.ExportSummary(context.Background(), 5, from, to, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", artifact.ContentType)
	assert.True(t, strings.HasSuffix(artifact.Filename, ".csv"))
	assert.True(t, artifact.ExpiresAt.After(time.Now()))

	file, filename, err := svc.OpenDownload(artifact.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, artifact.Filename, filename)

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Roll Number,Name")
	assert.Contains(t, string(body), "001,Airi Satou")
}

func TestExportSummaryPDFHasMagicBytes(t *testing.T) {
	svc, _ := newExportFixture(t)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	artifact, err := svc.ExportSummary(context.Background(), 5, from, to, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", artifact.ContentType)

	file, _, err := svc.OpenDownload(artifact.Token)
	require.NoError(t, err)
	defer file.Close()

	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportSummaryRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.ExportSummary(context.Background(), 5, time.Now(), time.Now(), "xlsx")
	require.Error(t, err)
}

func TestOpenDownloadRejectsTamperedToken(t *testing.T) {
	svc, _ := newExportFixture(t)

	artifact, err := svc.ExportRoster(context.Background(), 5)
	require.NoError(t, err)

	_, _, err = svc.OpenDownload(artifact.Token + "x")
	require.Error(t, err)
}
