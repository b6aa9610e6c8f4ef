package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rollbook/rollbook-api/internal/models"
	"github.com/rollbook/rollbook-api/pkg/jobs"
)

const sheetsJobType = "sheets_slot_export"

// SheetsStudentEntry is one student's row in the webhook payload.
type SheetsStudentEntry struct {
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
	IsPresent  bool   `json:"isPresent"`
}

// SheetsExportPayload is the JSON body posted to the sheets webhook after a
// same-day attendance submission.
type SheetsExportPayload struct {
	Date               string               `json:"date"`
	Period             int                  `json:"period"`
	SemesterName       string               `json:"semesterName"`
	FacultyName        string               `json:"facultyName"`
	StudentsAttendance []SheetsStudentEntry `json:"studentsAttendance"`
}

type sheetsSlotJob struct {
	Slot      models.Slot
	FacultyID string
}

type sheetsAttendanceReader interface {
	ListBySlot(ctx context.Context, slot models.Slot) ([]models.AttendanceRecordDetail, error)
}

// SheetsService mirrors submitted slots to an external spreadsheet webhook.
// Delivery is asynchronous and best-effort; failures are retried by the queue
// and logged, never surfaced to the submitting request.
type SheetsService struct {
	attendance sheetsAttendanceReader
	semesters  semesterRepository
	client     *http.Client
	webhookURL string
	queue      *jobs.Queue
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewSheetsService constructs the sheets mirror service. A queue is created
// but not started; call Start before enqueueing.
func NewSheetsService(attendance sheetsAttendanceReader, semesters semesterRepository, webhookURL string, timeout time.Duration, queueCfg jobs.QueueConfig, logger *zap.Logger) *SheetsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &SheetsService{
		attendance: attendance,
		semesters:  semesters,
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
		logger:     logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("sheets", s.handleJob, queueCfg)
	return s
}

// SetMetrics attaches delivery counters.
func (s *SheetsService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// Enabled reports whether a webhook URL is configured.
func (s *SheetsService) Enabled() bool {
	return s.webhookURL != ""
}

// Start launches the delivery workers.
func (s *SheetsService) Start(ctx context.Context) {
	if s.Enabled() {
		s.queue.Start(ctx)
	}
}

// Stop drains the delivery workers.
func (s *SheetsService) Stop() {
	if s.Enabled() {
		s.queue.Stop()
	}
}

// EnqueueSlot schedules a slot for webhook delivery.
func (s *SheetsService) EnqueueSlot(slot models.Slot, facultyID string) {
	if !s.Enabled() {
		return
	}
	job := jobs.Job{
		ID:      uuid.New().String(),
		Type:    sheetsJobType,
		Payload: sheetsSlotJob{Slot: slot, FacultyID: facultyID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue sheets export", zap.Error(err))
	}
}

func (s *SheetsService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(sheetsSlotJob)
	if !ok {
		s.logger.Error("unexpected sheets job payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.ExportSlot(ctx, payload.Slot)
	s.metrics.RecordSheetsDelivery(err == nil)
	return err
}

// ExportSlot builds the webhook payload for a slot and posts it. A non-2xx
// response is an error so the queue retries it.
func (s *SheetsService) ExportSlot(ctx context.Context, slot models.Slot) error {
	records, err := s.attendance.ListBySlot(ctx, slot)
	if err != nil {
		return fmt.Errorf("load slot for export: %w", err)
	}
	if len(records) == 0 {
		s.logger.Debug("skipping sheets export for empty slot",
			zap.Time("date", slot.Date), zap.Int("period", slot.Period))
		return nil
	}

	semester, err := s.semesters.FindByID(ctx, slot.SemesterID)
	if err != nil {
		return fmt.Errorf("load semester for export: %w", err)
	}

	payload := SheetsExportPayload{
		Date:         slot.Date.Format("2006-01-02"),
		Period:       slot.Period,
		SemesterName: semester.Name,
		FacultyName:  records[0].FacultyName,
	}
	for _, record := range records {
		payload.StudentsAttendance = append(payload.StudentsAttendance, SheetsStudentEntry{
			RollNumber: record.RollNumber,
			Name:       record.StudentName,
			IsPresent:  record.IsPresent,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sheets payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sheets request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sheets webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheets webhook returned %d: %s", resp.StatusCode, string(snippet))
	}

	s.logger.Info("slot mirrored to sheets",
		zap.String("date", payload.Date),
		zap.Int("period", payload.Period),
		zap.String("semester", payload.SemesterName),
		zap.Int("students", len(payload.StudentsAttendance)))
	return nil
}
