package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/unicode"

	"pdf-quickcheck/config"
	"pdf-quickcheck/scan"
)

// ErrUnsupported is returned for containers Attachments cannot open.
var ErrUnsupported = errors.New("unsupported container type")

// attachmentSep joins a container name and an attachment file name.
const attachmentSep = "::"

// Outlook property streams inside an attachment storage.
const (
	msgAttachPrefix   = "__attach_version1.0_"
	msgAttachData     = "__substg1.0_37010102"
	msgAttachLongName = "__substg1.0_3707001F"
	msgAttachName     = "__substg1.0_3704001F"
)

// Attachments extracts the PDF attachments of an eml, mbox or msg container.
// Parser panics are recovered and reported as errors.
func Attachments(name string, data []byte) (docs []scan.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("%s: parser panic: %v", name, r)
		}
	}()

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "eml":
		return emlAttachments(name, data)
	case "mbox":
		return mboxAttachments(name, data)
	case "msg":
		return msgAttachments(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}

func emlAttachments(name string, data []byte) ([]scan.Document, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EML %s: %w", name, err)
	}

	var docs []scan.Document
	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines)+len(env.OtherParts))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)
	parts = append(parts, env.OtherParts...)
	for i, p := range parts {
		if !isPDFPart(p) {
			continue
		}
		fileName := p.FileName
		if fileName == "" {
			fileName = "attachment-" + strconv.Itoa(i+1) + ".pdf"
		}
		docs = append(docs, scan.Document{
			Name: name + attachmentSep + fileName,
			Data: p.Content,
		})
	}
	return docs, nil
}

func isPDFPart(p *enmime.Part) bool {
	return strings.EqualFold(p.ContentType, "application/pdf") ||
		config.IsPDFFile(p.FileName) ||
		IsPDF(p.Content)
}

// mboxAttachments runs every message through the EML path. Messages that
// fail to parse are skipped; an mbox without a single readable message is an
// error.
func mboxAttachments(name string, data []byte) ([]scan.Document, error) {
	reader := mbox.NewReader(bytes.NewReader(data))

	var docs []scan.Document
	var lastErr error
	parsed := 0
	for n := 1; ; n++ {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			lastErr = err
			break
		}
		content, err := io.ReadAll(msg)
		if err != nil {
			lastErr = err
			continue
		}
		found, err := emlAttachments(name+"#"+strconv.Itoa(n), content)
		if err != nil {
			lastErr = err
			continue
		}
		parsed++
		docs = append(docs, found...)
	}

	if parsed == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to parse MBOX %s: %w", name, lastErr)
	}
	return docs, nil
}

type msgAttachment struct {
	name string
	data []byte
}

// msgAttachments walks the compound file of an Outlook message and collects
// attachment storages whose data stream looks like a PDF.
func msgAttachments(name string, data []byte) ([]scan.Document, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MSG %s: %w", name, err)
	}

	byStorage := make(map[string]*msgAttachment)
	var order []string
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		storage := attachmentStorage(entry.Path)
		if storage == "" {
			continue
		}
		att, ok := byStorage[storage]
		if !ok {
			att = &msgAttachment{}
			byStorage[storage] = att
			order = append(order, storage)
		}

		switch entry.Name {
		case msgAttachData:
			att.data, err = readEntry(entry)
		case msgAttachLongName:
			var b []byte
			if b, err = readEntry(entry); err == nil {
				att.name = decodeUTF16(b)
			}
		case msgAttachName:
			if att.name != "" {
				continue
			}
			var b []byte
			if b, err = readEntry(entry); err == nil {
				att.name = decodeUTF16(b)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read MSG %s: %w", name, err)
		}
	}

	var docs []scan.Document
	for i, key := range order {
		att := byStorage[key]
		if len(att.data) == 0 {
			continue
		}
		if !config.IsPDFFile(att.name) && !IsPDF(att.data) {
			continue
		}
		fileName := att.name
		if fileName == "" {
			fileName = "attachment-" + strconv.Itoa(i+1) + ".pdf"
		}
		docs = append(docs, scan.Document{Name: name + attachmentSep + fileName, Data: att.data})
	}
	return docs, nil
}

// attachmentStorage returns the top-level attachment storage an entry lives
// in, or "" for entries outside any attachment. Nested messages inside an
// attachment are not descended into.
func attachmentStorage(path []string) string {
	if len(path) != 1 || !strings.HasPrefix(path[0], msgAttachPrefix) {
		return ""
	}
	return path[0]
}

func readEntry(f *mscfb.File) ([]byte, error) {
	buf := make([]byte, f.Size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeUTF16(b []byte) string {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\x00")
}
