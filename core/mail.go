package core

import (
	"bytes"
	"net/mail"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain content

		// Markdown, when set, is rendered to HTMLContent and used as the text fallback.
		Markdown    string
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	switch {
	case m.BodyStr != "":
		m.TextContent = m.BodyStr
	case m.Markdown != "":
		m.TextContent = m.Markdown
	}
	if m.Markdown == "" {
		return nil
	}

	var buff bytes.Buffer
	if err := markdown.Convert([]byte(m.Markdown), &buff); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
