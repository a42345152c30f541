package validators

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
)

const maxMultipartMemory = 12 << 20

// File is an uploaded form file, fully buffered.
type File struct {
	Filename string
	Content  io.Reader
}

// IsMultipart reports whether r carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

// DecodeMultipart reads the JSON document in form field jsonField into dest
// and returns the optional file in fileField.
func DecodeMultipart(r *http.Request, jsonField string, dest any, fileField string) (*File, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	if err := decodeJSON(strings.NewReader(r.FormValue(jsonField)), dest); err != nil {
		return nil, err
	}

	f, header, err := r.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+fileField+" file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read "+fileField+" file")
	}
	return &File{Filename: header.Filename, Content: bytes.NewReader(data)}, nil
}
