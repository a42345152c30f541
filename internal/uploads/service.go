package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
)

const (
	operationUploadProof = "uploads.payment_proof"
	fileField            = "file"
	maxProofBytes        = 10 << 20
)

var uploadCandidates = []probe.Candidate{
	{Path: "/payments/upload", Method: http.MethodPost},
	{Path: "/uploads", Method: http.MethodPost},
	{Path: "/files/upload", Method: http.MethodPost},
	{Path: "/media/upload", Method: http.MethodPost},
}

// Proof is an uploaded payment proof artifact.
type Proof struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
	Raw any    `json:"raw,omitempty"`
}

// Service uploads payment proofs.
type Service interface {
	UploadProof(ctx context.Context, token, filename string, content io.Reader) (*Proof, error)
}

type service struct {
	uploader apiclient.Uploader
	prober   *probe.Prober
	logg     *logger.Logger
}

func NewService(uploader apiclient.Uploader, prober *probe.Prober, logg *logger.Logger) (Service, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	if prober == nil {
		return nil, fmt.Errorf("prober required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{uploader: uploader, prober: prober, logg: logg}, nil
}

// UploadProof sends the file as multipart field "file" to the first upload
// route the deployment implements.
func (s *service) UploadProof(ctx context.Context, token, filename string, content io.Reader) (*Proof, error) {
	if content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof file is required")
	}
	data, err := io.ReadAll(io.LimitReader(content, maxProofBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read proof file")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof file is empty")
	}
	if len(data) > maxProofBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof file is too large")
	}
	if strings.TrimSpace(filename) == "" {
		filename = "proof"
	}

	res, err := s.prober.Walk(ctx, operationUploadProof, uploadCandidates, func(ctx context.Context, c probe.Candidate) (apiclient.Body, error) {
		return s.uploader.DoMultipart(ctx, c.Path, fileField, filename, bytes.NewReader(data), token)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.As(err).Code(), err, "payment proof upload failed").WithTitle("Upload failed")
	}

	proof := normalize(res.Body)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"endpoint": res.Candidate.Path, "proof_id": proof.ID}), "payment proof uploaded")
	return proof, nil
}

// normalize accepts id|file_id|upload_id and url|path.
func normalize(body apiclient.Body) *Proof {
	proof := &Proof{Raw: body.Value()}
	fields, ok := body.Value().(map[string]any)
	if !ok {
		return proof
	}
	proof.ID = firstString(fields, "id", "file_id", "upload_id")
	proof.URL = firstString(fields, "url", "path")
	return proof
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
