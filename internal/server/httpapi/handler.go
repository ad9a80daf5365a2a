// Package httpapi exposes the services over JSON/HTTP with gin.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators of Handler. Limiter may be nil.
type Deps struct {
	Users          *services.UserService
	Sessions       *services.SessionManager
	Credentials    *services.CredentialValidator
	Ingest         *services.IngestCoordinator
	Retrieval      *services.RetrievalGateway
	Limiter        LoginLimiter
	Logger         logging.Logger
	MaxUploadBytes int64
}

type Handler struct {
	users          *services.UserService
	sessions       *services.SessionManager
	credentials    *services.CredentialValidator
	ingest         *services.IngestCoordinator
	retrieval      *services.RetrievalGateway
	limiter        LoginLimiter
	logger         logging.Logger
	maxUploadBytes int64
}

func NewHandler(d Deps) *Handler {
	limiter := d.Limiter
	if limiter == nil {
		limiter = allowAll{}
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handler{
		users:          d.Users,
		sessions:       d.Sessions,
		credentials:    d.Credentials,
		ingest:         d.Ingest,
		retrieval:      d.Retrieval,
		limiter:        limiter,
		logger:         d.Logger.With("module", "http"),
		maxUploadBytes: maxUpload,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/ping", h.ping)

	r.POST("/signup", h.signup)
	r.POST("/login", h.rateLimitLogin(), h.login)
	r.POST("/login/session", h.sessionLogin)
	r.POST("/login/refresh", h.refresh)
	r.POST("/logout", h.requireCredential(services.SessionToken), h.logout)

	r.GET("/upload", h.uploadForm)
	r.POST("/upload", h.requireCredential(services.SessionToken), h.upload)
	r.POST("/dev/upload", h.requireCredential(services.DevToken), h.upload)

	r.GET("/item", h.listItems)
	r.GET("/item/:id", h.getItem)
	r.GET("/media/*path", h.media)

	return r
}

func (h *Handler) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
