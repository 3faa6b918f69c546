package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"math/rand/v2"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fambam/internal/models"
	"fambam/internal/observability"
	"fambam/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MaxImageEdge       = 1920
	MaxCompressedBytes = 1 << 20
	MaxAvatarBytes     = 5 << 20
	JPEGQuality        = 82
	MinJPEGQuality     = 40
	JPEGQualityStep    = 8
	WebPQuality        = 82
)

// UploadFile is one file taken from a multipart form.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// UploadSession tracks the images uploaded while composing one post.
type UploadSession struct {
	ownerID string
	paths   []string
	urls    []string
}

// URLs returns the public URLs in upload order.
func (u *UploadSession) URLs() []string {
	return append([]string(nil), u.urls...)
}

// Len is the number of files uploaded so far.
func (u *UploadSession) Len() int {
	return len(u.paths)
}

// MediaService compresses images and writes them to the blob store.
type MediaService struct {
	backend
	store storage.BlobStore
	now   func() time.Time
}

func NewMediaService(store storage.BlobStore) *MediaService {
	return &MediaService{
		backend: newBackend(),
		store:   store,
		now:     time.Now,
	}
}

// NewSession starts a composing session for ownerID.
func (s *MediaService) NewSession(ownerID string) *UploadSession {
	return &UploadSession{ownerID: ownerID}
}

// UploadPostImage compresses file and stores it under the session owner.
func (s *MediaService) UploadPostImage(ctx context.Context, session *UploadSession, file UploadFile) (string, error) {
	if session.Len() >= models.MaxPostMedia {
		return "", models.NewValidationError("Maximum 4 images per post")
	}

	data, ext, err := compressImage(file.Content)
	if err != nil {
		observability.MediaUploads.WithLabelValues("post", "invalid").Inc()
		return "", err
	}

	objectPath := fmt.Sprintf("%s/%d-%s.%s", session.ownerID, s.now().UnixMilli(), randomSuffix(), ext)
	if err := s.put(ctx, "post", objectPath, data, false); err != nil {
		return "", err
	}

	url := s.store.PublicURL(objectPath)
	session.paths = append(session.paths, objectPath)
	session.urls = append(session.urls, url)
	return url, nil
}

// UploadAvatar stores a new avatar for ownerID. The size limit is checked
// before the file is decoded or the store is touched.
func (s *MediaService) UploadAvatar(ctx context.Context, ownerID string, file UploadFile) (string, error) {
	if len(file.Content) > MaxAvatarBytes {
		observability.MediaUploads.WithLabelValues("avatar", "invalid").Inc()
		return "", models.NewValidationError("Avatar must be less than 5MB")
	}

	data, ext, err := compressImage(file.Content)
	if err != nil {
		observability.MediaUploads.WithLabelValues("avatar", "invalid").Inc()
		return "", err
	}

	objectPath := fmt.Sprintf("%s/avatar-%d.%s", ownerID, s.now().UnixMilli(), ext)
	if err := s.put(ctx, "avatar", objectPath, data, true); err != nil {
		return "", err
	}
	return s.store.PublicURL(objectPath), nil
}

// Discard removes everything uploaded in session. Failures are logged.
func (s *MediaService) Discard(ctx context.Context, session *UploadSession) {
	for _, p := range session.paths {
		rctx, cancel := s.bounded(ctx)
		if err := s.store.Remove(rctx, p); err != nil {
			s.log().WarnContext(ctx, "failed to discard upload",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
	session.paths = nil
	session.urls = nil
}

func (s *MediaService) put(ctx context.Context, kind, objectPath string, data []byte, overwrite bool) error {
	pctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.store.Put(pctx, objectPath, data, overwrite); err != nil {
		observability.MediaUploads.WithLabelValues(kind, "failed").Inc()
		s.log().ErrorContext(ctx, "media upload failed",
			slog.String("path", objectPath),
			slog.String("error", err.Error()),
		)
		return models.NewUploadError(err)
	}
	observability.MediaUploads.WithLabelValues(kind, "ok").Inc()
	return nil
}

// compressImage validates content as an image, caps its long edge and
// re-encodes it. WebP stays WebP; everything else becomes JPEG with the
// quality lowered until the result fits MaxCompressedBytes.
func compressImage(content []byte) ([]byte, string, error) {
	if len(content) == 0 || !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, "", models.NewValidationError("Invalid image file")
	}
	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", models.NewValidationError("Invalid image file")
	}

	resized := resizeToFit(decoded, MaxImageEdge, MaxImageEdge)

	if decodedFormatToMime(format) == "image/webp" {
		out, err := encodeWebP(resized, WebPQuality)
		if err != nil {
			return nil, "", models.NewInternalError(err)
		}
		return out, "webp", nil
	}

	flat := flatten(resized)
	var out []byte
	for q := JPEGQuality; ; q -= JPEGQualityStep {
		if q < MinJPEGQuality {
			q = MinJPEGQuality
		}
		out, err = encodeJPEG(flat, q)
		if err != nil {
			return nil, "", models.NewInternalError(err)
		}
		if len(out) <= MaxCompressedBytes || q == MinJPEGQuality {
			break
		}
	}
	return out, "jpg", nil
}

// flatten draws src over white so transparent pixels do not turn black in
// JPEG output.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func randomSuffix() string {
	s := strconv.FormatUint(rand.Uint64(), 36)
	if len(s) > 7 {
		s = s[:7]
	}
	return s
}
