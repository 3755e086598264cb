package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/export"
	"github.com/xhdskyprime/rekruitment/pkg/storage"
)

type photoStoreStub struct {
	files map[string][]byte
}

func (s photoStoreStub) ReadAll(filename string) ([]byte, error) {
	if data, ok := s.files[filename]; ok {
		return data, nil
	}
	return nil, errors.New("file not found")
}

type cardRendererStub struct {
	cards []export.Card
}

func (s *cardRendererStub) Render(card export.Card) ([]byte, error) {
	s.cards = append(s.cards, card)
	return []byte("%PDF-stub"), nil
}

type expiredSignerStub struct{}

func (expiredSignerStub) Generate(subject string) (string, time.Time, error) {
	return "token", time.Now(), nil
}

func (expiredSignerStub) Parse(token string) (string, time.Time, error) {
	return "", time.Time{}, storage.ErrTokenExpired
}

func samplePhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 40))
	for x := 0; x < 30; x++ {
		for y := 0; y < 40; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 160, B: 200, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func newTestCredentialService(t *testing.T, store *applicantStoreStub, signer linkSigner) (*CredentialService, *cardRendererStub) {
	photos := photoStoreStub{files: map[string][]byte{"photos/siti.png": samplePhoto(t)}}
	svc := NewCredentialService(store, &sessionStoreStub{store: store}, photos, signer, nil, nil, zap.NewNop(), CredentialConfig{
		Organisation: "RSUD Sehat",
		APIPrefix:    "/api/v1",
	})
	renderer := &cardRendererStub{}
	svc.renderer = renderer
	return svc, renderer
}

func fieldValue(card export.Card, label string) string {
	for _, f := range card.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

func TestCredentialServiceRegistrationCard(t *testing.T) {
	store := newApplicantStoreStub()
	applicant := &models.Applicant{FullName: "Siti Rahma", NationalID: "3201010101010001", ParticipantNumber: strPtr("24031507001"), PhotoPath: strPtr("photos/siti.png"), Gender: "P"}
	store.add(applicant)
	svc, renderer := newTestCredentialService(t, store, nil)

	doc, err := svc.RenderRegistrationCard(context.Background(), applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, "kartu-pendaftaran-24031507001.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)

	require.Len(t, renderer.cards, 1)
	card := renderer.cards[0]
	assert.Equal(t, "24031507001", card.ParticipantNumber)
	assert.Equal(t, "Perempuan", fieldValue(card, "Jenis Kelamin"))
	assert.NotEmpty(t, card.Photo)
	assert.NotEmpty(t, card.LineCode)
	assert.NotEmpty(t, card.MatrixCode)
}

func TestCredentialServiceRegistrationCardDegrades(t *testing.T) {
	store := newApplicantStoreStub()
	applicant := &models.Applicant{FullName: "Tanpa Nomor", PhotoPath: strPtr("photos/missing.png")}
	store.add(applicant)
	svc, renderer := newTestCredentialService(t, store, nil)

	doc, err := svc.RenderRegistrationCard(context.Background(), applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, "kartu-pendaftaran-"+applicant.ID+".pdf", doc.Filename)

	card := renderer.cards[0]
	assert.Empty(t, card.ParticipantNumber)
	assert.Nil(t, card.Photo)
	assert.Nil(t, card.LineCode)
	assert.Nil(t, card.MatrixCode)
}

func TestCredentialServiceRegistrationCardRendersPDF(t *testing.T) {
	store := newApplicantStoreStub()
	applicant := verifiedApplicant("24031507001")
	applicant.PhotoPath = strPtr("photos/siti.png")
	store.add(applicant)
	photos := photoStoreStub{files: map[string][]byte{"photos/siti.png": samplePhoto(t)}}
	svc := NewCredentialService(store, &sessionStoreStub{store: store}, photos, nil, nil, nil, zap.NewNop(), CredentialConfig{Organisation: "RSUD Sehat"})

	doc, err := svc.RenderRegistrationCard(context.Background(), applicant.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))
}

func TestCredentialServiceExamCard(t *testing.T) {
	store := newApplicantStoreStub()
	session := store.addSession(&models.ExamSession{Name: "Sesi Pagi", Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), StartTime: "08:00", EndTime: "10:00", Location: "Aula Utama"})
	applicant := verifiedApplicant("24031507001")
	applicant.SessionID = strPtr(session.ID)
	store.add(applicant)
	svc, renderer := newTestCredentialService(t, store, nil)

	doc, err := svc.RenderExamCard(context.Background(), dto.ExamCardRequest{Identifier: "24031507001", NationalID: applicant.NationalID})
	require.NoError(t, err)
	assert.Equal(t, "kartu-ujian-24031507001.pdf", doc.Filename)

	card := renderer.cards[0]
	assert.Equal(t, "KARTU PESERTA UJIAN", card.Title)
	assert.Equal(t, "Sesi Pagi", fieldValue(card, "Sesi"))
	assert.Equal(t, "01-04-2024", fieldValue(card, "Tanggal"))
	assert.Equal(t, "08:00 - 10:00", fieldValue(card, "Waktu"))
	assert.Equal(t, "Aula Utama", fieldValue(card, "Lokasi"))
}

func TestCredentialServiceExamCardWithoutSession(t *testing.T) {
	store := newApplicantStoreStub()
	applicant := store.add(verifiedApplicant("24031507001"))
	svc, renderer := newTestCredentialService(t, store, nil)

	_, err := svc.RenderExamCard(context.Background(), dto.ExamCardRequest{Identifier: applicant.ID, NationalID: applicant.NationalID})
	require.NoError(t, err)
	assert.Equal(t, toBeAnnounced, fieldValue(renderer.cards[0], "Sesi"))
	assert.Equal(t, toBeAnnounced, fieldValue(renderer.cards[0], "Lokasi"))
}

func TestCredentialServiceExamCardRejections(t *testing.T) {
	store := newApplicantStoreStub()
	verified := store.add(verifiedApplicant("24031507001"))
	pending := store.add(&models.Applicant{NationalID: "3201010101010009", ParticipantNumber: strPtr("24031507002")})
	svc, renderer := newTestCredentialService(t, store, nil)
	ctx := context.Background()

	_, err := svc.RenderExamCard(ctx, dto.ExamCardRequest{Identifier: "24031507001", NationalID: "3201010101019999"})
	assert.ErrorIs(t, err, appErrors.ErrIdentityMismatch)

	_, err = svc.RenderExamCard(ctx, dto.ExamCardRequest{Identifier: "24031507002", NationalID: pending.NationalID})
	assert.ErrorIs(t, err, appErrors.ErrNotEligible)

	_, err = svc.RenderExamCard(ctx, dto.ExamCardRequest{Identifier: "24031507999", NationalID: verified.NationalID})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.RenderExamCard(ctx, dto.ExamCardRequest{Identifier: "24031507001", NationalID: "abc"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, renderer.cards)
}

func TestCredentialServiceExamCardLink(t *testing.T) {
	store := newApplicantStoreStub()
	applicant := store.add(verifiedApplicant("24031507001"))
	svc, renderer := newTestCredentialService(t, store, storage.NewSignedURLSigner("secret", time.Minute))

	link, err := svc.IssueExamCardLink(context.Background(), dto.ExamCardRequest{Identifier: "24031507001", NationalID: applicant.NationalID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/exam-card/download?token="))
	assert.True(t, link.ExpiresAt.After(time.Now()))

	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, link.Token, parsed.Query().Get("token"))

	doc, err := svc.RenderExamCardByToken(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, "kartu-ujian-24031507001.pdf", doc.Filename)
	require.Len(t, renderer.cards, 1)

	_, err = svc.RenderExamCardByToken(context.Background(), link.Token+"x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestCredentialServiceExamCardLinkRechecksEligibility(t *testing.T) {
	store := newApplicantStoreStub()
	applicant := store.add(verifiedApplicant("24031507001"))
	svc, _ := newTestCredentialService(t, store, storage.NewSignedURLSigner("secret", time.Minute))

	link, err := svc.IssueExamCardLink(context.Background(), dto.ExamCardRequest{Identifier: "24031507001", NationalID: applicant.NationalID})
	require.NoError(t, err)

	store.mu.Lock()
	store.applicants[applicant.ID].Documents[0].Status = models.DocumentInvalid
	store.mu.Unlock()

	_, err = svc.RenderExamCardByToken(context.Background(), link.Token)
	assert.ErrorIs(t, err, appErrors.ErrNotEligible)
}

func TestCredentialServiceExpiredLink(t *testing.T) {
	store := newApplicantStoreStub()
	svc, _ := newTestCredentialService(t, store, expiredSignerStub{})

	_, err := svc.RenderExamCardByToken(context.Background(), "anything")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
