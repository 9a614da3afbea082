// Package snapshot exports and restores the whole in-memory state as a single document.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/roster"
)

const Version = 1

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type (
	// Document is the backup file layout. Nil sections are left untouched on import.
	Document struct {
		Version    int          `json:"version,omitempty"`
		ExportedAt *time.Time   `json:"exportedAt,omitempty"`
		SchoolName string       `json:"schoolName,omitempty"`
		Classes    []string     `json:"classes"`
		Students   []StudentDoc `json:"students"`
		Attendance []RecordDoc  `json:"attendance"`
		WAConfig   *DispatchDoc `json:"waConfig,omitempty"`
	}

	StudentDoc struct {
		ID          string `json:"id"`
		NISN        string `json:"nisn"`
		Name        string `json:"name"`
		Grade       string `json:"grade"`
		Avatar      string `json:"avatar"`
		ParentPhone string `json:"parentPhone,omitempty"`
	}

	RecordDoc struct {
		ID        string    `json:"id"`
		StudentID string    `json:"studentId"`
		Timestamp time.Time `json:"timestamp"`
		Status    string    `json:"status"`
	}

	DispatchDoc struct {
		Mode     string `json:"mode"`
		APIURL   string `json:"apiUrl"`
		APIKey   string `json:"apiKey"`
		AutoSend bool   `json:"autoSend"`
	}
)

func FromStudent(st roster.Student) StudentDoc {
	return StudentDoc{
		ID:          st.ID,
		NISN:        st.Code,
		Name:        st.Name,
		Grade:       st.Class,
		Avatar:      st.Avatar,
		ParentPhone: st.GuardianPhone,
	}
}

func FromRecord(rec attendance.Record) RecordDoc {
	return RecordDoc{ID: rec.ID, StudentID: rec.StudentID, Timestamp: rec.Timestamp, Status: string(rec.Status)}
}

func FromDispatch(cfg dispatch.Config) *DispatchDoc {
	return &DispatchDoc{Mode: string(cfg.Mode), APIURL: cfg.GatewayURL, APIKey: cfg.GatewayKey, AutoSend: cfg.AutoSend}
}

// Encode writes `doc` as indented JSON, zstd-compressed when `compress` is set.
func Encode(w io.Writer, doc Document, compress bool) (err error) {
	if compress {
		zw, zerr := zstd.NewWriter(w)
		if zerr != nil {
			return errors.Wrap(zerr, "creating zstd writer")
		}
		defer func() {
			if cerr := zw.Close(); err == nil && cerr != nil {
				err = errors.Wrap(cerr, "closing zstd writer")
			}
		}()
		w = zw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return nil
}

// Decode reads a plain or zstd-compressed document.
func Decode(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return Document{}, errors.Wrap(err, "opening zstd stream")
		}
		defer zr.Close()
		src = zr
	}

	var doc Document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return Document{}, errors.Wrap(err, "decoding snapshot")
	}
	if doc.Version > Version {
		return Document{}, errors.Errorf("unsupported snapshot version %d", doc.Version)
	}
	return doc, nil
}

// IsCompressed reports whether `data` starts with the zstd frame magic.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}
