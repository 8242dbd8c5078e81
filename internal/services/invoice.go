package services

import (
	"bytes"
	"fmt"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// RenderInvoice renders the payment receipt for a paid appointment as PDF.
func RenderInvoice(apt *models.Appointment, currency string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(95, 111, 255)
	pdf.CellFormat(0, 10, "Prescripto - Appointment Receipt", "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Appointment", "1", 1, "C", false, 0, "")
	addInvoiceRow(pdf, "Receipt No", apt.ID.Hex(), true)
	addInvoiceRow(pdf, "Doctor", apt.DocData.Name, true)
	addInvoiceRow(pdf, "Speciality", apt.DocData.Speciality, false)
	addInvoiceRow(pdf, "Patient", apt.UserData.Name, true)
	addInvoiceRow(pdf, "Date", formatSlotDate(apt.SlotDate), false)
	addInvoiceRow(pdf, "Time", apt.SlotTime, false)
	addInvoiceRow(pdf, "Booked on", apt.Date.Format("2006-01-02 15:04"), false)

	pdf.CellFormat(0, 10, "Payment", "1", 1, "C", false, 0, "")
	addInvoiceRow(pdf, "Status", string(apt.Status()), false)
	pdf.SetFont("Arial", "B", 13)
	addInvoiceRow(pdf, "Amount Paid", fmt.Sprintf("%s %d.00", currency, apt.Amount), true)

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 10, "This is a computer generated receipt", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addInvoiceRow(pdf *gofpdf.Fpdf, label, value string, bold bool) {
	if bold {
		pdf.SetFont("Arial", "B", 12)
	} else {
		pdf.SetFont("Arial", "", 10)
	}
	pdf.CellFormat(45, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}

func formatSlotDate(key string) string {
	t, err := models.ParseSlotDate(key)
	if err != nil {
		return key
	}
	return t.Format("02 Jan 2006")
}
