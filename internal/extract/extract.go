// Package extract pulls the displayable HTML body and the send date
// out of a raw RFC 5322 message.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// Content is the part of an email the event parser consumes.
type Content struct {
	// HTML is the text/html body with its transfer encoding
	// (typically quoted-printable) already decoded.
	HTML string

	// Date is the parsed Date header. Only its calendar date is used
	// downstream, but the full value is kept.
	Date time.Time

	// Subject is the decoded Subject header.
	Subject string

	// MessageID identifies the message for idempotent reprocessing.
	// May be empty when the header is absent.
	MessageID string
}

// Message parses raw message bytes into Content. A message without a
// text/html part or without a parsable Date header is an error; the
// caller decides whether that aborts the run or just the message.
func Message(raw []byte) (*Content, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	date, err := mr.Header.Date()
	if err != nil {
		return nil, fmt.Errorf("parsing Date header: %w", err)
	}
	if date.IsZero() {
		return nil, errors.New("message has no Date header")
	}

	subject, _ := mr.Header.Subject()
	msgID, _ := mr.Header.MessageID()

	content := &Content{
		Date:      date,
		Subject:   subject,
		MessageID: msgID,
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/html") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("reading HTML part: %w", err)
		}
		content.HTML = string(body)
	}

	if content.HTML == "" {
		return nil, errors.New("message has no text/html part")
	}

	return content, nil
}
