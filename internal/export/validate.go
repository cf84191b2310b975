package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
)

const (
	MinPDFSize = 100
	MaxPDFSize = 50 << 20
	eofWindow  = 100
)

var (
	ErrPDFSignature = errors.New("missing %PDF- signature")
	ErrPDFTooSmall  = errors.New("pdf is too small")
	ErrPDFTooLarge  = errors.New("pdf is too large")
	ErrPDFMime      = errors.New("content is not application/pdf")
)

// PDFCheck は検証結果。Warnings は致命的でない指摘（末尾の %%EOF 欠落など）。
type PDFCheck struct {
	Size     int
	Warnings []string
}

// ValidatePDF は書き出した PDF の最低限の体裁を確かめる。
func ValidatePDF(b []byte) (PDFCheck, error) {
	chk := PDFCheck{Size: len(b)}
	if len(b) < MinPDFSize {
		return chk, fmt.Errorf("%w: %d bytes (min %d)", ErrPDFTooSmall, len(b), MinPDFSize)
	}
	if len(b) > MaxPDFSize {
		return chk, fmt.Errorf("%w: %d bytes (max %d)", ErrPDFTooLarge, len(b), MaxPDFSize)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		return chk, ErrPDFSignature
	}
	if ct := http.DetectContentType(b); ct != "application/pdf" {
		return chk, fmt.Errorf("%w: detected %s", ErrPDFMime, ct)
	}
	tail := b[len(b)-min(eofWindow, len(b)):]
	if !bytes.Contains(tail, []byte("%%EOF")) {
		chk.Warnings = append(chk.Warnings, "missing %EOF marker near end of file")
	}
	return chk, nil
}
