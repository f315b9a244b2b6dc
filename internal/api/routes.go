// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/plc-diagram/backend/internal/extract"
	"github.com/plc-diagram/backend/internal/session"
	"github.com/plc-diagram/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	SessionMgr        *session.Manager
	History           *storage.HistoryStore
	Profile           extract.Profile
	DefaultGrammar    string
	Version           string
	AllowFileDeletion bool
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Files   FileHandler
	Diagram DiagramHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Files:   NewFileHandler(deps.Store, deps.SessionMgr, deps.History),
		Diagram: NewDiagramHandler(deps.Store, deps.SessionMgr, deps.History, deps.Profile, deps.DefaultGrammar),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, deps *Dependencies) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	// File management
	fileGroup := api.Group("/files")
	fileGroup.POST("/upload", handlers.Files.HandleUploadFile)
	fileGroup.POST("/upload/binary", handlers.Files.HandleUploadBinary)
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)
	if deps.AllowFileDeletion {
		fileGroup.DELETE("/:id", handlers.Files.HandleDeleteFile)
	}
	fileGroup.PUT("/:id", handlers.Files.HandleRenameFile)

	// Diagram generation sessions
	diagGroup := api.Group("/diagrams")
	diagGroup.POST("", handlers.Diagram.HandleStartGenerate)
	diagGroup.GET("/recent", handlers.Diagram.HandleRecentGenerations)
	diagGroup.GET("/:sessionId/status", handlers.Diagram.HandleSessionStatus)
	diagGroup.POST("/:sessionId/keepalive", handlers.Diagram.HandleSessionKeepAlive)
	diagGroup.GET("/:sessionId/progress", handlers.Diagram.HandleProgressStream)
	diagGroup.GET("/:sessionId/markdown", handlers.Diagram.HandleGetDiagram)
	diagGroup.GET("/:sessionId/result", handlers.Diagram.HandleGetResult)
	diagGroup.GET("/:sessionId/result/msgpack", handlers.Diagram.HandleGetResultMsgpack)
}
