package cmd

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"

	"golang.org/x/text/encoding/htmlindex"
)

// messageExtensions are the file types picked up from a messages directory
var messageExtensions = map[string]bool{".eml": true, ".txt": true}

// loadStatementFiles reads statement files as raw documents. Statements
// carry no envelope.
func loadStatementFiles(paths []string) ([]*models.RawDocument, map[string]string, error) {
	docs := make([]*models.RawDocument, 0, len(paths))
	names := make(map[string]string, len(paths))

	for _, path := range paths {
		data, err := readDocumentFile(path)
		if err != nil {
			return nil, nil, err
		}
		doc := models.NewRawDocument(models.DocumentStatement, data, models.Envelope{})
		docs = append(docs, doc)
		names[doc.ID] = path
	}
	return docs, names, nil
}

// loadMessageFiles parses RFC 822 files into message documents
func loadMessageFiles(paths []string) ([]*models.RawDocument, map[string]string, error) {
	docs := make([]*models.RawDocument, 0, len(paths))
	names := make(map[string]string, len(paths))

	for _, path := range paths {
		data, err := readDocumentFile(path)
		if err != nil {
			return nil, nil, err
		}
		doc, err := parseMessage(data)
		if err != nil {
			return nil, nil, errors.DocumentError(errors.CodeUnrecognizedDocument, path, err).
				WithSuggestion("Message files must be RFC 822 emails (.eml)")
		}
		docs = append(docs, doc)
		names[doc.ID] = path
	}
	return docs, names, nil
}

// collectMessageFiles expands directories into their .eml and .txt files,
// sorted by name. Plain file arguments are kept as given.
func collectMessageFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fileError(arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, errors.FileError(errors.CodeDirectoryError, arg, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !messageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, entry.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func readDocumentFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	return data, nil
}

func fileError(path string, err error) error {
	code := errors.CodeFileNotFound
	if os.IsPermission(err) {
		code = errors.CodeFilePermission
	}
	return errors.FileError(code, path, err)
}

// parseMessage reads the headers the pipeline cares about and the body
// text, converted to UTF-8. Documents without a parseable date keep a zero
// ReceivedAt.
func parseMessage(data []byte) (*models.RawDocument, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message headers: %w", err)
	}

	decoder := new(mime.WordDecoder)
	envelope := models.Envelope{
		Sender:    decodeHeader(decoder, msg.Header.Get("From")),
		Subject:   decodeHeader(decoder, msg.Header.Get("Subject")),
		MessageID: strings.TrimSpace(msg.Header.Get("Message-Id")),
	}
	if received, err := msg.Header.Date(); err == nil {
		envelope.ReceivedAt = received
	}

	body, err := readBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	return models.NewRawDocument(models.DocumentMessage, []byte(body), envelope), nil
}

func decodeHeader(decoder *mime.WordDecoder, value string) string {
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

var (
	htmlHidden = regexp.MustCompile(`(?is)<(script|style|head)\b[^>]*>.*?</(script|style|head)>`)
	htmlBreak  = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|tr|li|table|h[1-6])>`)
	htmlCell   = regexp.MustCompile(`(?i)</t[dh]>`)
	htmlTag    = regexp.MustCompile(`(?s)<[^>]*>`)
)

// messageText is what a message body yields: its first text/plain part and
// its first text/html part
type messageText struct {
	plain, html       string
	hasPlain, hasHTML bool
}

// readBody returns the first text/plain body, descending into nested
// multiparts. HTML-only messages are reduced to text.
func readBody(contentType, encoding string, body io.Reader) (string, error) {
	var text messageText
	if err := collectText(contentType, encoding, body, &text); err != nil {
		return "", err
	}
	switch {
	case text.hasPlain:
		return text.plain, nil
	case text.hasHTML:
		return htmlToText(text.html), nil
	}
	return "", fmt.Errorf("message has no text part")
}

func collectText(contentType, encoding string, body io.Reader, text *messageText) error {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		reader := multipart.NewReader(body, params["boundary"])
		for !text.hasPlain {
			part, err := reader.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read message part: %w", err)
			}
			if disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disposition == "attachment" {
				continue
			}
			if err := collectText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, text); err != nil {
				return err
			}
		}
		return nil
	}

	if mediaType != "text/plain" && mediaType != "text/html" {
		return nil
	}
	if mediaType == "text/html" && text.hasHTML {
		return nil
	}

	decoded, err := decodeText(body, encoding, params["charset"])
	if err != nil {
		return err
	}
	if mediaType == "text/html" {
		text.html, text.hasHTML = decoded, true
	} else {
		text.plain, text.hasPlain = decoded, true
	}
	return nil
}

// decodeText undoes the transfer encoding and converts the charset to UTF-8.
// Unknown charsets are passed through unchanged.
func decodeText(body io.Reader, encoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return string(data), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(data), nil
	}
	utf8, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", charset, err)
	}
	return string(utf8), nil
}

// htmlToText keeps one line per block element and drops the markup
func htmlToText(body string) string {
	body = htmlHidden.ReplaceAllString(body, "")
	body = htmlBreak.ReplaceAllString(body, "\n")
	body = htmlCell.ReplaceAllString(body, " ")
	body = html.UnescapeString(htmlTag.ReplaceAllString(body, ""))

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
