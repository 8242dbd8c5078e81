package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

// Attachment is a file sent along with an email.
type Attachment struct {
	Name string
	Data []byte
}

// Mailer sends email through an SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}
	return &Mailer{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

// BuildMessage composes a plain-text message with optional attachments.
func (m *Mailer) BuildMessage(to, subject, body string, attachments ...Attachment) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	for _, a := range attachments {
		data := a.Data
		msg.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return msg
}

func (m *Mailer) Send(to, subject, body string, attachments ...Attachment) error {
	if err := m.dialer.DialAndSend(m.BuildMessage(to, subject, body, attachments...)); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// mailSender is what ReceiptNotifier needs from Mailer.
type mailSender interface {
	Send(to, subject, body string, attachments ...Attachment) error
}

// ReceiptNotifier emails the patient a PDF receipt once a payment is
// confirmed. Sending happens in the background so verification never waits
// on SMTP.
type ReceiptNotifier struct {
	mailer   mailSender
	currency string
	log      *logger.Logger
	wg       sync.WaitGroup
}

func NewReceiptNotifier(mailer *Mailer, currency string, log *logger.Logger) *ReceiptNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &ReceiptNotifier{mailer: mailer, currency: currency, log: log}
}

func (n *ReceiptNotifier) PaymentConfirmed(ctx context.Context, apt *models.Appointment) {
	if apt.UserData.Email == "" {
		return
	}
	snapshot := *apt
	entry := n.log.WithContext(ctx).WithField("appointment_id", apt.ID.Hex())

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.send(&snapshot); err != nil {
			entry.WithError(err).Warn("Failed to send payment receipt")
			return
		}
		entry.Info("Payment receipt sent")
	}()
}

// Wait blocks until every pending receipt has been sent or has failed.
func (n *ReceiptNotifier) Wait() {
	n.wg.Wait()
}

func (n *ReceiptNotifier) send(apt *models.Appointment) error {
	pdf, err := RenderInvoice(apt, n.currency)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received your payment for the appointment with %s on %s at %s.\nYour receipt is attached.\n\nSent %s",
		apt.UserData.Name, apt.DocData.Name, formatSlotDate(apt.SlotDate), apt.SlotTime,
		time.Now().UTC().Format("2006-01-02 15:04 MST"),
	)
	return n.mailer.Send(apt.UserData.Email, "Payment receipt", body, Attachment{
		Name: "receipt-" + apt.ID.Hex() + ".pdf",
		Data: pdf,
	})
}
