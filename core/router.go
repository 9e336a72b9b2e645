package core

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const deckTitle = "RN PowerPoint Generator"

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, store *sessions.CookieStore, gate *Gate, cache *DirectoryCache, assembler *DeckAssembler, stats GenerationStats) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()
	if cfg.MaxUploadMB > 0 {
		r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	}

	// Global middleware: request id -> origin/CORS -> session -> CSRF
	r.Use(RequestIDMiddleware())
	r.Use(OriginMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.GET("/auth/users", func(c *gin.Context) {
			names, selected, sess, err := gate.LoginScreen(c.Request.Context(), currentSession(c))
			if err != nil {
				respondGateError(c, err)
				return
			}
			if err := saveSession(c, cfg, sess); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist session")
				return
			}
			c.JSON(http.StatusOK, gin.H{"users": names, "selected": selected})
		})

		api.POST("/auth/select", func(c *gin.Context) {
			var req struct {
				Name string `json:"name" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
				return
			}
			sess, profile, err := gate.Select(c.Request.Context(), currentSession(c), req.Name)
			if err != nil {
				respondGateError(c, err)
				return
			}
			if err := saveSession(c, cfg, sess); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist session")
				return
			}
			c.JSON(http.StatusOK, gin.H{"selected": profile})
		})

		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Name     string `json:"name"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			sess, err := gate.Authenticate(c.Request.Context(), currentSession(c), req.Name, req.Password)
			if errors.Is(err, ErrInvalidCredentials) {
				if saveErr := saveSession(c, cfg, sess); saveErr != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
					return
				}
			}
			if err != nil {
				respondGateError(c, err)
				return
			}

			cookie := cookieSession(c)
			if cookie == nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
				return
			}
			// drop everything, including the pre-login csrf token
			cookie.Values = map[interface{}]interface{}{}
			token, err := rotateCSRFToken(cookie)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue csrf token")
				return
			}
			if err := saveSession(c, cfg, sess); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}
			c.Header(headerCSRFToken, token)

			slog.Info("user signed in", "user", sess.CurrentUser)
			c.JSON(http.StatusOK, gin.H{
				"user":    sess.Profile(),
				"message": fmt.Sprintf("Welcome back, %s!", sess.CurrentUser),
			})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			sess := gate.Logout(currentSession(c))
			if err := saveSession(c, cfg, sess); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.Status(http.StatusNoContent)
		})

		authed := api.Group("")
		authed.Use(AuthRequired())

		authed.GET("/users/me", func(c *gin.Context) {
			sess := c.MustGet("auth").(Session)
			c.JSON(http.StatusOK, sess.Profile())
		})

		authed.POST("/presentations/check", func(c *gin.Context) {
			images, autoResize, ok := readGenerationRequest(c, cfg)
			if !ok {
				return
			}
			_, report := assembler.Assemble(images, autoResize)
			c.JSON(http.StatusOK, report)
		})

		authed.POST("/presentations", func(c *gin.Context) {
			sess := c.MustGet("auth").(Session)
			images, autoResize, ok := readGenerationRequest(c, cfg)
			if !ok {
				return
			}

			now := time.Now()
			deck, report := assembler.Assemble(images, autoResize)
			deck.Meta = DeckMeta{Title: deckTitle, Author: sess.CurrentUser, Created: now}
			data, err := deck.Bytes()
			if err != nil {
				slog.Error("presentation generation failed", "user", sess.CurrentUser, "error", err)
				respondError(c, http.StatusInternalServerError, "GENERATION_FAILED", "Error generating presentation: "+err.Error())
				return
			}

			ctx := c.Request.Context()
			if err := stats.Record(ctx, sess.CurrentUser, report); err != nil {
				slog.Warn("failed to record generation stats", "error", err)
			}
			slog.Info("presentation generated",
				"user", sess.CurrentUser,
				"slides", report.Slides,
				"skipped", len(report.Skipped),
				"auto_resize", autoResize,
			)

			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", PresentationFilename(now)))
			c.Header("X-Slide-Count", strconv.Itoa(report.Slides))
			c.Header("X-Skipped-Count", strconv.Itoa(len(report.Skipped)))
			c.Data(http.StatusOK, PresentationMIME, data)
		})

		authed.GET("/stats", func(c *gin.Context) {
			sess := c.MustGet("auth").(Session)
			snap, err := stats.Snapshot(c.Request.Context(), sess.CurrentUser)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load stats")
				return
			}
			c.JSON(http.StatusOK, snap)
		})

		authed.GET("/system/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, CollectSystemStatus(c.Request.Context(), cache, stats, startedAt))
		})
	}

	return r
}

// readGenerationRequest parses the multipart images and the auto_resize toggle.
// Bodies above cfg.MaxUploadMB are rejected with 413.
// It writes the error response itself and reports false on failure.
func readGenerationRequest(c *gin.Context, cfg Config) ([]ImageInput, bool, bool) {
	limit := int64(cfg.MaxUploadMB) << 20
	if limit > 0 {
		if c.Request.ContentLength > limit {
			respondUploadTooLarge(c, cfg)
			return nil, false, false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondUploadTooLarge(c, cfg)
			return nil, false, false
		}
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "multipart form with images is required")
		return nil, false, false
	}

	autoResize := true
	if v := strings.TrimSpace(c.PostForm("auto_resize")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "auto_resize must be true or false")
			return nil, false, false
		}
		autoResize = b
	}

	images, err := ReadUploads(form.File["images"])
	if err != nil {
		if errors.Is(err, ErrUnsupportedFile) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return nil, false, false
		}
		respondError(c, http.StatusBadRequest, "INVALID_UPLOAD", err.Error())
		return nil, false, false
	}
	if len(images) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Please upload at least one image file.")
		return nil, false, false
	}
	return images, autoResize, true
}

func respondUploadTooLarge(c *gin.Context, cfg Config) {
	respondError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
		fmt.Sprintf("Upload exceeds the %d MB limit.", cfg.MaxUploadMB))
}

// saveSession writes s into the request's cookie session and persists it.
func saveSession(c *gin.Context, cfg Config, s Session) error {
	cookie := cookieSession(c)
	if cookie == nil {
		return errors.New("no session in context")
	}
	writeSession(cookie, s)
	applySessionOptions(cfg, cookie)
	return cookie.Save(c.Request, c.Writer)
}

// PresentationFilename is the download name for a deck generated at t.
func PresentationFilename(t time.Time) string {
	return "presentation_" + t.Format("20060102_150405") + ".pptx"
}
