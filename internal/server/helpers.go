package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fambam/internal/middleware"
	"fambam/internal/models"
	"fambam/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already wrote the HTTP response.
var errResponseWritten = errors.New("response already written")

func humanizeParam(param string) string {
	param = strings.TrimSpace(param)
	if param == "" {
		return "ID"
	}
	if strings.EqualFold(param, "id") {
		return "ID"
	}
	if s, ok := strings.CutSuffix(param, "Id"); ok {
		param = s
	}
	return strings.ToUpper(param[:1]) + param[1:] + " ID"
}

// parseID reads a positive numeric route parameter. On failure it answers
// 400 and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondErr writes err with the status its code maps to. Causes of
// server-side failures are logged, never returned.
func respondErr(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, status, err)
}

// redirectWith sends a 303 to path carrying key=msg in the query string.
func redirectWith(c *fiber.Ctx, path, key, msg string) error {
	return c.Redirect(path+"?"+url.Values{key: {msg}}.Encode(), fiber.StatusSeeOther)
}

func redirectError(c *fiber.Ctx, path string, err error) error {
	if models.StatusFor(err) >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "form action failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return redirectWith(c, path, "error", models.UserMessage(err))
}

// parseCursor reads the optional "before" feed cursor.
func parseCursor(c *fiber.Ctx) (*time.Time, error) {
	raw := c.Query("before")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	return &t, nil
}

func readUpload(fh *multipart.FileHeader) (service.UploadFile, error) {
	file, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return service.UploadFile{}, err
	}
	return service.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// formFiles collects the non-empty files posted under any of names.
func formFiles(c *fiber.Ctx, names ...string) ([]service.UploadFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not a multipart body: no files.
		return nil, nil
	}

	var files []service.UploadFile
	for _, name := range names {
		for _, fh := range form.File[name] {
			if fh.Size == 0 {
				continue
			}
			f, err := readUpload(fh)
			if err != nil {
				return nil, models.NewValidationError("Could not read uploaded file")
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// wantsRedirect reports whether a browser form asked for a redirect answer.
func wantsRedirect(c *fiber.Ctx) bool {
	v := c.FormValue("redirect")
	return v == "1" || strings.EqualFold(v, "true")
}
