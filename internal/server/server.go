package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/auth"
	"portfolio/internal/feed"
	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/objectstore"
)

// maxObjectSize bounds a single PUT /api/objects body.
const maxObjectSize = 32 << 20

type PhotoRepository interface {
	ListPhotos(ctx context.Context) ([]models.PhotoDocument, error)
	AddPhoto(ctx context.Context, doc *models.PhotoDocument) error
	UpdatePhoto(ctx context.Context, id string, upd models.PhotoUpdate) (*models.PhotoDocument, error)
	DeletePhoto(ctx context.Context, id string) error
}

// Subscriber hands out live snapshot channels, see feed.Hub.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan []models.PhotoDocument, func(), error)
}

type Deps struct {
	Photos   PhotoRepository
	Objects  objectstore.Store
	Feed     Subscriber
	Notifier feed.Notifier
	Auth     *auth.Service
	Log      logging.Logger
	// FilesDir is served under /files when objects live on local disk.
	FilesDir string
}

type Server struct {
	cfg      *models.Config
	router   *gin.Engine
	http     *http.Server
	photos   PhotoRepository
	objects  objectstore.Store
	feed     Subscriber
	notifier feed.Notifier
	auth     *auth.Service
	log      logging.Logger
}

func NewServer(cfg *models.Config, d Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log))
	if d.FilesDir != "" {
		r.Static("/files", d.FilesDir)
	}

	s := &Server{
		cfg:      cfg,
		router:   r,
		photos:   d.Photos,
		objects:  d.Objects,
		feed:     d.Feed,
		notifier: d.Notifier,
		auth:     d.Auth,
		log:      d.Log,
	}
	s.http = &http.Server{Addr: cfg.ServerAddr, Handler: r}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/placeholder/:w/:h/:seed", s.handlePlaceholder)

	api := r.Group("/api")
	api.POST("/auth/signin", s.handleSignIn)
	api.GET("/photos", s.handleListPhotos)
	api.GET("/photos/live", s.handleLive)
	api.GET("/objects/url", s.handleObjectURL)

	protected := api.Group("", auth.Middleware(d.Auth))
	protected.POST("/photos", s.handleAddPhoto)
	protected.PATCH("/photos/:id", s.handleUpdatePhoto)
	protected.DELETE("/photos/:id", s.handleDeletePhoto)
	protected.PUT("/objects/*path", s.handlePutObject)
	protected.DELETE("/objects/*path", s.handleDeleteObject)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// notify publishes a change; the write itself already succeeded, so a
// failure only delays live subscribers until the next change.
func (s *Server) notify(ctx context.Context, op, id string) {
	if err := s.notifier.Notify(ctx, feed.Change{Op: op, ID: id}); err != nil {
		s.log.Error(ctx, "error publishing change", "op", op, "id", id, "err", err)
	}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	const op = "server.handleSignIn"

	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
