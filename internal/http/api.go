package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"userfeed/internal/archiver"
	"userfeed/internal/domain"
	"userfeed/internal/service"
	"userfeed/internal/storage"
)

const (
	errCreateUser    = "Failed to create user."
	errRetrieveUsers = "Failed to retrieve users."
	errInvalidBody   = "Invalid request body."
	errRetrieveRuns  = "Failed to retrieve runs."
	errListArchives  = "Failed to list archives."

	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	archives archiver.Archiver
	logger   *logrus.Logger
}

// NewHandler builds the route handler. archives may be nil when no archive
// bucket is configured.
func NewHandler(users service.UserService, archives archiver.Archiver, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:    users,
		archives: archives,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	router.Use(cors.New(corsCfg))
	router.Use(h.requestLogger())

	router.POST("/createUser", h.createUser)
	router.GET("/users", h.listUsers)

	router.GET("/runs", h.listRuns)
	router.GET("/archives", h.listArchives)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Info("request")
	}
}

// decodeUserBody takes name, email and age from a JSON object body exactly
// as sent. An empty body or a JSON array carries no fields and yields an
// empty record. Any other value is rejected.
func decodeUserBody(body []byte) (domain.User, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return domain.User{}, nil
	}

	switch body[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return domain.User{}, err
		}
		return domain.UserFromFields(fields), nil
	case '[':
		if !json.Valid(body) {
			return domain.User{}, errors.New("invalid json array")
		}
		return domain.User{}, nil
	default:
		return domain.User{}, errors.New("body must be a json object")
	}
}

func (h *Handler) createUser(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.WithField("request_id", c.GetString("request_id")).Warnf("read create user body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	user, err := decodeUserBody(body)
	if err != nil {
		h.logger.WithField("request_id", c.GetString("request_id")).Warnf("decode create user body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}

	created, err := h.users.CreateUser(c.Request.Context(), user)
	if err != nil {
		// details are logged by the service with the run id
		c.JSON(http.StatusInternalServerError, gin.H{"error": errCreateUser})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.WithField("request_id", c.GetString("request_id")).Errorf("list users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errRetrieveUsers})
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) listRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.users.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithField("request_id", c.GetString("request_id")).Errorf("list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errRetrieveRuns})
		return
	}

	resp := make([]RunResponse, len(runs))
	for i := range runs {
		resp[i] = runToResponse(runs[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listArchives(c *gin.Context) {
	if h.archives == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archiving not configured"})
		return
	}

	objects, err := h.archives.List(c.Request.Context())
	if err != nil {
		h.logger.WithField("request_id", c.GetString("request_id")).Errorf("list archives: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errListArchives})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

type RunResponse struct {
	ID           string          `json:"id"`
	State        domain.RunState `json:"state"`
	FailedStage  domain.Stage    `json:"failed_stage,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	UserName     string          `json:"user_name"`
	UserEmail    string          `json:"user_email"`
	StartedAt    string          `json:"started_at"`
	FinishedAt   string          `json:"finished_at"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func runToResponse(run domain.PipelineRun) RunResponse {
	return RunResponse{
		ID:           run.ID,
		State:        run.State,
		FailedStage:  run.FailedStage,
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		UserName:     run.UserName,
		UserEmail:    run.UserEmail,
		StartedAt:    run.StartedAt.Format(time.RFC3339Nano),
		FinishedAt:   run.FinishedAt.Format(time.RFC3339Nano),
	}
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
