package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/models"
	"github.com/xhdskyprime/rekruitment/pkg/jobs"
	"github.com/xhdskyprime/rekruitment/pkg/notify"
)

// JobTypeStatusNotification identifies queued applicant status emails.
const JobTypeStatusNotification = "applicant_status_notification"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NotificationService queues status change emails and delivers them from the worker pool.
type NotificationService struct {
	queue        jobDispatcher
	notifier     notify.Notifier
	metrics      *MetricsService
	logger       *zap.Logger
	organisation string
}

// NewNotificationService constructs a NotificationService. The queue can be
// attached later with SetQueue since the queue needs Handle as its handler.
func NewNotificationService(notifier notify.Notifier, metrics *MetricsService, logger *zap.Logger, organisation string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifier: notifier, metrics: metrics, logger: logger, organisation: organisation}
}

// SetQueue attaches the dispatcher used by NotifyStatusChange.
func (s *NotificationService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// NotifyStatusChange queues an email for the applicant. Failures are logged
// and never affect the verification that triggered them.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, n models.StatusNotification) {
	if s.queue == nil {
		return
	}
	if strings.TrimSpace(n.Email) == "" {
		s.logger.Info("skipping notification without email", zap.String("applicant_id", n.ApplicantID))
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypeStatusNotification, Payload: n}); err != nil {
		s.metrics.RecordNotification(OutcomeNotificationFailed)
		s.logger.Warn("failed to enqueue status notification", zap.String("applicant_id", n.ApplicantID), zap.Error(err))
	}
}

// Handle delivers a queued notification job.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.StatusNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := s.notifier.Send(ctx, s.compose(n)); err != nil {
		return fmt.Errorf("send status notification to %s: %w", n.ApplicantID, err)
	}
	s.metrics.RecordNotification(OutcomeNotificationSent)
	return nil
}

// GiveUp records a notification that exhausted its retries.
func (s *NotificationService) GiveUp(job jobs.Job, err error) {
	s.metrics.RecordNotification(OutcomeNotificationFailed)
}

func (s *NotificationService) compose(n models.StatusNotification) notify.Message {
	var subject, body string
	switch n.Current {
	case models.StatusVerified:
		subject = "Berkas Anda telah diverifikasi"
		body = fmt.Sprintf("Yth. %s,\n\nSeluruh dokumen Anda telah dinyatakan valid. Kartu ujian dapat diunduh menggunakan nomor peserta %s dan NIK Anda.\n",
			n.FullName, fallback(n.ParticipantNumber, "(belum tersedia)"))
	case models.StatusRejected:
		subject = "Berkas Anda belum memenuhi persyaratan"
		body = fmt.Sprintf("Yth. %s,\n\nSatu atau lebih dokumen Anda dinyatakan tidak valid. Silakan periksa status dokumen Anda.\n", n.FullName)
	default:
		subject = "Status berkas Anda berubah"
		body = fmt.Sprintf("Yth. %s,\n\nStatus berkas Anda saat ini: %s.\n", n.FullName, n.Current)
	}
	if s.organisation != "" {
		body += "\n" + s.organisation + "\n"
	}
	return notify.Message{To: n.Email, Subject: subject, Body: body}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
