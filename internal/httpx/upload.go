package httpx

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/AngelCh415/roi-insights/internal/apperr"
)

const (
	uploadField = "file"
	csvMIME     = "text/csv"
	// room for multipart boundaries and part headers on top of the file itself
	multipartSlack = 64 << 10
)

// readCSVUpload streams the multipart body and returns the bytes of the
// "file" part. A missing part yields a nil slice with no error so the
// pipeline reports it; an empty file yields an empty, non-nil slice.
func readCSVUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, bodyErr(err, limit)
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			part.Close()
			continue
		}
		defer part.Close()

		if !isCSV(part.FileName(), part.Header.Get("Content-Type")) {
			return nil, apperr.CSVFileType()
		}
		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		if err != nil {
			return nil, bodyErr(err, limit)
		}
		if int64(len(data)) > limit {
			return nil, apperr.FileTooLarge(limit)
		}
		return data, nil
	}
}

func isCSV(name, contentType string) bool {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == csvMIME
}

func bodyErr(err error, limit int64) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apperr.FileTooLarge(limit)
	}
	return apperr.DataImport("Malformed multipart upload")
}
