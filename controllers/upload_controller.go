package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/uploadhub/filestore"
	"github.com/cppla/uploadhub/middleware"
	"github.com/cppla/uploadhub/models"
	"github.com/cppla/uploadhub/utils"
)

// multipartOverhead bounds the request body beyond the file ceiling (boundaries, part headers, small fields).
const multipartOverhead = 1 << 20

// UploadController exposes one intake endpoint per upload category.
type UploadController struct {
	store *filestore.Store
}

// NewUploadController creates a new UploadController instance.
func NewUploadController(store *filestore.Store) *UploadController {
	return &UploadController{store: store}
}

// Image handles POST /upload/image (field "image").
func (u *UploadController) Image() gin.HandlerFunc { return u.handler(filestore.Image) }

// Document handles POST /upload/document (field "document").
func (u *UploadController) Document() gin.HandlerFunc { return u.handler(filestore.Document) }

// CSV handles POST /upload/csv (field "csv").
func (u *UploadController) CSV() gin.HandlerFunc { return u.handler(filestore.CSV) }

func (u *UploadController) handler(c filestore.Category) gin.HandlerFunc {
	spec, ok := u.store.Table().Lookup(c)
	if !ok {
		panic("upload category not configured: " + string(c))
	}
	return middleware.Handle(func(ctx *gin.Context) error {
		return u.upload(ctx, spec)
	})
}

func (u *UploadController) upload(ctx *gin.Context, spec filestore.Spec) error {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, spec.MaxBytes+multipartOverhead)

	mr, err := ctx.Request.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			utils.Message(ctx, http.StatusBadRequest, "No "+spec.Label+" file provided")
			return nil
		}
		return uploadError(spec, err)
	}

	part, err := nextFilePart(mr, spec.Field)
	if err != nil {
		return uploadError(spec, err)
	}
	if part == nil {
		utils.Message(ctx, http.StatusBadRequest, "No "+spec.Label+" file provided")
		return nil
	}
	defer part.Close()

	contentType := part.Header.Get("Content-Type")
	if utils.HasMarkup(contentType) {
		return filestore.UnsupportedTypeError(contentType)
	}

	stored, err := u.store.Save(ctx.Request.Context(), spec.Category, models.IncomingFile{
		OriginalName: part.FileName(),
		ContentType:  contentType,
		DeclaredSize: declaredSize(part),
		Content:      part,
	})
	if err != nil {
		return uploadError(spec, err)
	}

	if err := noMoreFiles(mr); err != nil {
		_, _ = u.store.Remove(stored.Path)
		return uploadError(spec, err)
	}

	url, err := filestore.FileURL(requestScheme(ctx.Request), ctx.Request.Host, stored.Path)
	if err != nil {
		_, _ = u.store.Remove(stored.Path)
		return utils.Internal(err)
	}

	utils.Success(ctx, models.UploadResponse{
		Success: true,
		File: models.UploadedFile{
			Filename: stored.Filename,
			MimeType: stored.ContentType,
			Size:     stored.Size,
			URL:      url,
		},
	})
	return nil
}

// nextFilePart returns the file part named field, or nil when the request carries none.
// Plain form fields before it are skipped without buffering; a file under any other name is rejected.
func nextFilePart(mr *multipart.Reader, field string) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if part.FormName() != field {
			_ = part.Close()
			return nil, unexpectedFile(part.FormName())
		}
		return part, nil
	}
}

// noMoreFiles drains the remaining parts and fails on any further file.
func noMoreFiles(mr *multipart.Reader) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name, isFile := part.FormName(), part.FileName() != ""
		_ = part.Close()
		if isFile {
			return unexpectedFile(name)
		}
	}
}

func unexpectedFile(field string) *utils.APIError {
	return utils.NewAPIError(http.StatusBadRequest, "Unexpected file field: "+field)
}

func declaredSize(part *multipart.Part) int64 {
	if v := part.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return -1
}

// uploadError maps transport failures onto the error envelope. Rejections pass through unchanged.
func uploadError(spec filestore.Spec, err error) error {
	var rej *filestore.Rejection
	if errors.As(err, &rej) {
		return rej
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return filestore.TooLargeError(spec)
	}
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if strings.Contains(err.Error(), "multipart") {
		return utils.NewAPIError(http.StatusBadRequest, "Malformed multipart request")
	}
	return utils.Internal(err)
}

func requestScheme(r *http.Request) string {
	if proto := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])); proto == "http" || proto == "https" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
