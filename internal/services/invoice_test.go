package services

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func paidAppointment() *models.Appointment {
	return &models.Appointment{
		ID:       primitive.NewObjectID(),
		UserID:   "u1",
		DocID:    "d1",
		SlotDate: "10_6_2025",
		SlotTime: "10:00",
		UserData: models.PatientProfile{Name: "Patient X", Email: "x@example.com"},
		DocData:  models.DoctorProfile{Name: "Dr. A", Speciality: "General physician"},
		Amount:   500,
		Date:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Payment:  true,
	}
}

func TestRenderInvoiceProducesPDF(t *testing.T) {
	pdf, err := RenderInvoice(paidAppointment(), "INR")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestFormatSlotDate(t *testing.T) {
	assert.Equal(t, "10 Jun 2025", formatSlotDate("10_6_2025"))
	assert.Equal(t, "garbage", formatSlotDate("garbage"))
}

func TestMailerBuildMessage(t *testing.T) {
	m := NewMailer("smtp.example.com", 587, "noreply@example.com", "pw", "")
	msg := m.BuildMessage("x@example.com", "Payment receipt", "hello", Attachment{Name: "r.pdf", Data: []byte("%PDF")})

	assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"x@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Payment receipt"}, msg.GetHeader("Subject"))
}

type recordingSender struct {
	mu    sync.Mutex
	to    []string
	files []string
}

func (r *recordingSender) Send(to, subject, body string, attachments ...Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = append(r.to, to)
	for _, a := range attachments {
		r.files = append(r.files, a.Name)
	}
	return nil
}

func TestReceiptNotifierSendsPDF(t *testing.T) {
	sender := &recordingSender{}
	n := NewReceiptNotifier(nil, "INR", nil)
	n.mailer = sender
	apt := paidAppointment()

	n.PaymentConfirmed(context.Background(), apt)
	n.Wait()

	assert.Equal(t, []string{"x@example.com"}, sender.to)
	assert.Equal(t, []string{"receipt-" + apt.ID.Hex() + ".pdf"}, sender.files)
}

func TestReceiptNotifierSkipsMissingEmail(t *testing.T) {
	sender := &recordingSender{}
	n := NewReceiptNotifier(nil, "INR", nil)
	n.mailer = sender
	apt := paidAppointment()
	apt.UserData.Email = ""

	n.PaymentConfirmed(context.Background(), apt)
	n.Wait()
	assert.Empty(t, sender.to)
}
