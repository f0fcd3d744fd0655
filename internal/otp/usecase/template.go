package usecase

import (
	"bytes"
	htmltemplate "html/template"
	"io"
	"text/template"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/mail"
)

var (
	subjectTemplate = template.Must(template.New("subject").Parse(
		`Your {{.Purpose}} OTP Code - {{.Company}}`))

	textTemplate = template.Must(template.New("text").Parse(`
*********************************************************
*
*  YOUR OTP CODE: {{.Code}}
*  Purpose: {{.Purpose}}
*  Valid for: {{.ValidMinutes}} minutes
*
*********************************************************

Do not share this code with anyone.

This is an automated message from {{.Company}}.
`))

	htmlTemplate = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Your one-time passcode for <strong>{{.Purpose}}</strong> is:</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
  <p>It is valid for {{.ValidMinutes}} minutes. Do not share it with anyone.</p>
  <p style="color: #888; font-size: 12px;">This is an automated message from {{.Company}}.</p>
</body>
</html>`))

	smsTemplate = template.Must(template.New("sms").Parse(
		`{{.Company}}: your {{.Purpose}} code is {{.Code}}. Valid for {{.ValidMinutes}} minutes.`))
)

type messageData struct {
	Code         string
	Purpose      string
	ValidMinutes int
	Company      string
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func render(t executor, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Usecase) templateData(tx *entity.Transaction) messageData {
	minutes := int(tx.ExpiresAt.Sub(tx.CreatedAt).Minutes())
	if minutes <= 0 {
		minutes = s.settings.ExpiryMinutes
	}
	return messageData{
		Code:         tx.Code,
		Purpose:      tx.Purpose.Display(),
		ValidMinutes: minutes,
		Company:      s.settings.CompanyName,
	}
}

func (s *Usecase) buildEmail(tx *entity.Transaction) (mail.Message, error) {
	data := s.templateData(tx)

	subject, err := render(subjectTemplate, data)
	if err != nil {
		return mail.Message{}, err
	}
	text, err := render(textTemplate, data)
	if err != nil {
		return mail.Message{}, err
	}
	html, err := render(htmlTemplate, data)
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		From:     s.settings.MailFrom,
		To:       []string{tx.Email},
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	}, nil
}

func (s *Usecase) buildSMS(tx *entity.Transaction) (string, error) {
	return render(smsTemplate, s.templateData(tx))
}
