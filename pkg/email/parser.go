package email

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// chunkDelimiter is the literal line the source export tool writes between
// concatenated messages (32 underscores). The split assumes it never occurs
// inside a legitimate message body.
const chunkDelimiter = "________________________________"

// Parse splits a raw corpus into individual messages and parses each into a
// structured Email. Empty and whitespace-only segments are discarded.
// Parsing never fails: a pathological chunk yields mostly-empty fields.
func Parse(rawCorpus string) []Email {
	chunks := strings.Split(rawCorpus, chunkDelimiter)

	emails := make([]Email, 0, len(chunks))
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}
		emails = append(emails, parseOne(trimmed))
	}

	return emails
}

// parseOne parses a single raw chunk. Header lines are recognized by fixed
// case-sensitive prefixes; the header region ends at the first blank line
// that is not the final line of the chunk, and everything after that line is
// the body, including further blank lines and header-like text from quoted
// replies. With no blank line the body is empty and every line is scanned
// for headers.
func parseOne(chunk string) Email {
	rawLines := strings.Split(chunk, "\n")
	lines := make([]string, len(rawLines))
	for i, line := range rawLines {
		lines[i] = strings.TrimSpace(line)
	}

	var subject, fromLine, toLine, ccLine, dateLine string
	bodyStart := -1

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "Subject:"):
			subject = strings.TrimSpace(strings.TrimPrefix(line, "Subject:"))
		case strings.HasPrefix(line, "From:"):
			fromLine = strings.TrimSpace(strings.TrimPrefix(line, "From:"))
		case strings.HasPrefix(line, "To:"):
			toLine = strings.TrimSpace(strings.TrimPrefix(line, "To:"))
		case strings.HasPrefix(line, "Cc:"):
			ccLine = strings.TrimSpace(strings.TrimPrefix(line, "Cc:"))
		case strings.HasPrefix(line, "Sent:"), strings.HasPrefix(line, "Date:"):
			if idx := strings.Index(line, ":"); idx != -1 {
				dateLine = strings.TrimSpace(line[idx+1:])
			}
		case line == "" && i < len(lines)-1:
			bodyStart = i + 1
		}
		if bodyStart != -1 {
			break
		}
	}

	body := ""
	if bodyStart != -1 {
		body = strings.Join(lines[bodyStart:], "\n")
	}

	recipients := parseRecipients(toLine, RecipientTo)
	recipients = append(recipients, parseRecipients(ccLine, RecipientCc)...)

	return Email{
		ID:         gonanoid.Must(),
		Subject:    subject,
		Sender:     parseSender(fromLine),
		Recipients: recipients,
		Date:       dateLine,
		Body:       body,
		RawContent: chunk,
	}
}

// parseSender decomposes a From header. Without a bracketed address the
// whole field is treated as the name.
func parseSender(fromLine string) Address {
	if fromLine == "" {
		return Address{}
	}
	name, addr := splitAddress(fromLine)
	return Address{Name: name, Email: addr}
}

// parseRecipients splits a To or Cc header on semicolons into independent
// entries. Entries that are empty after trimming are dropped.
func parseRecipients(line string, kind RecipientKind) []Recipient {
	if line == "" {
		return nil
	}

	var recipients []Recipient
	for _, part := range strings.Split(line, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, addr := splitAddress(part)
		recipients = append(recipients, Recipient{Name: name, Email: addr, Kind: kind})
	}

	return recipients
}

// splitAddress locates an angle-bracket-delimited address within a mailbox
// fragment. Text before the opening bracket, trimmed, is the name. Malformed
// fragments degrade to name-only.
func splitAddress(part string) (name string, addr string) {
	open := strings.Index(part, "<")
	if open != -1 {
		if close := strings.Index(part[open+1:], ">"); close > 0 {
			return strings.TrimSpace(part[:open]), part[open+1 : open+1+close]
		}
	}
	return strings.TrimSpace(part), ""
}
