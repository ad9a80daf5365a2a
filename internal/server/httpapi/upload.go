package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	fileField     = "file"
	metadataField = "metadata"
)

// uploadFormHTML is a bare page for trying uploads from a browser.
const uploadFormHTML = `<!DOCTYPE html>
<html>
<head><title>uploader</title></head>
<body>
<form action="/upload" method="post" enctype="multipart/form-data">
<input type="file" name="` + fileField + `" multiple>
<input type="submit" value="Submit">
</form>
</body>
</html>
`

func (h *Handler) uploadForm(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(uploadFormHTML))
}

type uploadResponse struct {
	File []string `json:"file"`
}

// upload accepts a multipart form with repeated "file" parts and one
// "metadata" part holding a JSON array, one entry per file.
func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeMessage(c, http.StatusBadRequest, msgBadBody)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	// file parts sent without a filename end up among the plain values
	if len(form.Value[fileField]) > 0 {
		writeMessage(c, http.StatusBadRequest, msgFileName)
		return
	}

	metadata, err := readMetadata(form)
	if err != nil {
		writeMessage(c, http.StatusBadRequest, msgBadMetadata)
		return
	}

	headers := form.File[fileField]
	for _, fh := range headers {
		if fh.Header.Get("Content-Type") == "" {
			writeMessage(c, http.StatusBadRequest, msgContentType)
			return
		}
		if fh.Filename == "" {
			writeMessage(c, http.StatusBadRequest, msgFileName)
			return
		}
	}

	items := make([]services.UploadItem, 0, len(headers))
	defer func() {
		for _, it := range items {
			if cl, ok := it.Body.(io.Closer); ok {
				_ = cl.Close()
			}
		}
	}()
	if len(headers) == len(metadata) {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				writeMessage(c, http.StatusBadRequest, msgBadBody)
				return
			}
			items = append(items, services.UploadItem{FileName: fh.Filename, Body: f})
		}
	} else {
		// let the coordinator report the mismatch
		for _, fh := range headers {
			items = append(items, services.UploadItem{FileName: fh.Filename})
		}
	}

	stored, err := h.ingest.Ingest(c.Request.Context(), identity(c).UserID, items, metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{File: stored})
}

// readMetadata decodes the metadata part, sent either as a plain field or as
// a file part. A missing part means no metadata.
func readMetadata(form *multipart.Form) ([]models.Metadata, error) {
	var raw []byte
	if vals := form.Value[metadataField]; len(vals) > 0 {
		raw = []byte(vals[0])
	} else if files := form.File[metadataField]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return nil, err
		}
	} else {
		return nil, nil
	}

	var out []models.Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
