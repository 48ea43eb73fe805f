// Package server exposes recognition over HTTP for the mobile reader.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Goluxas/jp-image-to-dict/internal/config"
	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

const unrecognizedImageDetail = "Image file is an unknown format, corrupt, or incomplete."

// localOrigin matches dev servers on localhost, loopback and the Android
// emulator's host alias, on any port.
var localOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\]|10\.0\.2\.2)(:\d+)?$`)

type Server struct {
	engine    ocr.Engine
	hints     []string
	origins   []string
	maxUpload int64
	maxPixels int64
	log       *logrus.Entry
}

type captureResponse struct {
	CapturedText string        `json:"captured_text"`
	Segments     []ocr.Segment `json:"segments,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func New(engine ocr.Engine, cfg *config.Config) *Server {
	return &Server{
		engine:    engine,
		hints:     cfg.LanguageHints,
		origins:   cfg.CORSOrigins,
		maxUpload: cfg.MaxUploadBytes,
		maxPixels: cfg.MaxImagePixels,
		log:       logger.WithComponent("server"),
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /ocr/png/", s.handleOCR)

	c := cors.New(cors.Options{
		AllowOriginFunc:  s.allowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return s.withRequestLog(c.Handler(mux))
}

func (s *Server) allowOrigin(origin string) bool {
	return slices.Contains(s.origins, origin) || localOrigin.MatchString(origin)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		start := time.Now()

		if logger.DebugEnabled() {
			s.log.WithFields(logrus.Fields{
				"request_id": id,
				"origin":     r.Header.Get("Origin"),
				"remote":     r.RemoteAddr,
			}).Debugf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))

		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"elapsed":    time.Since(start),
		}).Infof("%s %s", r.Method, r.URL.Path)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Hello World",
		"engine":  s.engine.Name(),
	})
}

// handleOCR reads the multipart "file" field, normalizes it and runs the
// configured engine. The engine call runs on this request's goroutine.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("request_id", requestID(r.Context()))
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "Image file is too large."})
			return
		}
		log.WithError(err).Warn("upload without an image file")
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "Field 'file' is required."})
		return
	}
	defer file.Close()

	canonical, err := image.Normalize(image.FromReader(file), image.WithMaxPixels(s.maxPixels))
	if err != nil {
		if errors.Is(err, apperrors.ErrUnrecognizedFormat) {
			log.WithError(err).Warn("rejecting undecodable upload")
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: unrecognizedImageDetail})
			return
		}
		log.WithError(err).Error("normalizing upload")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Could not read the uploaded image."})
		return
	}

	text, err := s.engine.Recognize(r.Context(), canonical, s.hints)
	if err != nil {
		var ocrErr *apperrors.Error
		if errors.As(err, &ocrErr) && ocrErr.Kind == apperrors.KindEngineFailure {
			log.WithError(err).Error("recognition failed")
			writeJSON(w, http.StatusBadGateway, errorResponse{Detail: ocrErr.Detail})
			return
		}
		log.WithError(err).Error("recognition failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Text recognition failed."})
		return
	}

	writeJSON(w, http.StatusOK, captureResponse{CapturedText: text.FullText, Segments: text.Segments})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.DebugLog("[server]: writing response: %v", err)
	}
}
