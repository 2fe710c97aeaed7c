// Package server exposes match sessions over HTTP: workbook uploads run as
// background jobs, JSON point sets are matched synchronously.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skymatch/internal/calculator"
	"skymatch/internal/config"
	"skymatch/internal/excel"
	"skymatch/internal/logging"
	"skymatch/internal/matcher"
	"skymatch/internal/models"
	"skymatch/internal/pipeline"
)

// jobRetention is how long finished jobs stay queryable.
const jobRetention = 24 * time.Hour

type Server struct {
	cfg    *config.Config
	opts   pipeline.Options
	logger *logging.Logger
	jobs   *JobStore
	engine *gin.Engine
}

// New validates cfg, prepares the working directories and builds the router.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.Server.UploadDir, cfg.Server.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	opts.Logger = logger

	s := &Server{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		jobs:   NewJobStore(),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = s.cfg.Server.MaxUploadMB << 20

	store := cookie.NewStore([]byte(s.cfg.Server.SecretKey))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: int(jobRetention / time.Second)})
	r.Use(sessions.Sessions("skymatch", store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/login", s.handleLogin)
	r.GET("/logout", s.handleLogout)

	authorized := r.Group("/")
	authorized.Use(authRequired)
	{
		authorized.GET("/download-template", s.handleTemplate)
		authorized.POST("/run", s.handleRun)
		authorized.GET("/logs", s.handleLogs)
		authorized.GET("/status", s.handleStatus)
		authorized.POST("/cancel", s.handleCancel)
		authorized.GET("/download-result/:filename", s.handleDownload)
		authorized.POST("/api/match", s.handleMatch)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func authRequired(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user") == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "login required"})
		return
	}
	c.Next()
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if req.Username != s.cfg.Server.Username || req.Password != s.cfg.Server.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid username or password"})
		return
	}

	session := sessions.Default(c)
	session.Set("user", req.Username)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) layout() excel.Layout { return s.opts.Layout }

func (s *Server) handleTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="template.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := excel.WriteTemplate(c.Writer, s.opts.ObservedSheet, s.opts.ReferenceSheet, s.layout(), nil, nil); err != nil {
		s.logger.Error("template write failed", "error", err)
	}
}

// radiusFromForm reads radius and unit, falling back to the configuration.
func (s *Server) radiusFromForm(radiusStr, unit string) (float64, error) {
	radius := s.cfg.Match.Radius
	if radiusStr != "" {
		v, err := strconv.ParseFloat(strings.ReplaceAll(radiusStr, ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid radius %q", radiusStr)
		}
		radius = v
	}
	if unit == "" {
		unit = s.cfg.Match.Unit
	}
	arcsec, err := config.ToArcsec(radius, unit)
	if err != nil {
		return 0, err
	}
	if arcsec <= 0 {
		return 0, fmt.Errorf("radius must be > 0")
	}
	return arcsec, nil
}

func (s *Server) handleRun(c *gin.Context) {
	limit := s.cfg.Server.MaxUploadMB << 20
	if c.Request.ContentLength > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB)})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, err := c.FormFile("input_file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "input_file is required"})
		return
	}
	name := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "input_file must be an .xlsx workbook"})
		return
	}

	radius, err := s.radiusFromForm(c.PostForm("radius"), c.PostForm("unit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	inputPath := filepath.Join(s.cfg.Server.UploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), name))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "upload failed"})
		return
	}

	if n := s.jobs.Prune(jobRetention); n > 0 {
		s.logger.Debug("pruned finished jobs", "count", n)
	}

	job := NewJob()
	ctx, cancel := context.WithCancel(context.Background())
	job.CancelFn = cancel
	s.jobs.Add(job)

	go s.processJob(ctx, job, inputPath, radius)

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "job_id": job.ID})
}

func (s *Server) processJob(ctx context.Context, job *Job, inputPath string, radiusArcsec float64) {
	logger := s.logger.WithJob(job.ID)
	defer job.CancelFn()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "panic", r)
			job.fail(StatusError, fmt.Sprintf("Panic: %v", r))
		}
	}()

	job.Log(fmt.Sprintf("Processing file: %s", filepath.Base(inputPath)))
	job.Log(fmt.Sprintf("Matching within %.3f arcsec (%.1f m on the ground)...",
		radiusArcsec, calculator.ArcsecToMeters(radiusArcsec)))

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(s.cfg.Server.OutputDir, base+"_matches.xlsx")

	opts := s.opts
	opts.RadiusArcsec = radiusArcsec
	opts.Logger = logger
	opts.OnProgress = job.SetProgress
	opts.OnLog = job.Log

	res, err := pipeline.MatchWorkbook(ctx, inputPath, outputPath, opts)
	if err != nil {
		status := StatusError
		if errors.Is(err, context.Canceled) {
			status = StatusCancelled
		}
		logger.Warn("job failed", "error", err)
		job.fail(status, err.Error())
		return
	}

	job.finish(&JobResult{
		Rows:      res.Summary.Count,
		Sheet:     opts.ResultSheet,
		Output:    outputPath,
		Filename:  filepath.Base(outputPath),
		RadiusArc: radiusArcsec,
		Stats:     res,
	})
}

func (s *Server) jobFromQuery(c *gin.Context) *Job {
	job := s.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
	}
	return job
}

func (s *Server) handleLogs(c *gin.Context) {
	job := s.jobFromQuery(c)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"logs":     snap.Logs,
		"status":   snap.Status,
		"progress": snap.Progress,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	job := s.jobFromQuery(c)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	res := gin.H{
		"ok":     true,
		"status": snap.Status,
		"error":  snap.Error,
	}
	if snap.Result != nil {
		res["result"] = snap.Result
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCancel(c *gin.Context) {
	job := s.jobFromQuery(c)
	if job == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cancelled": job.Cancel()})
}

func (s *Server) handleDownload(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	target := filepath.Join(s.cfg.Server.OutputDir, filename)
	if _, err := os.Stat(target); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "result not found"})
		return
	}
	c.FileAttachment(target, filename)
}

type matchRequest struct {
	Observed  []models.PointRecord `json:"observed"`
	Reference []models.PointRecord `json:"reference"`
	Radius    float64              `json:"radius"`
	Unit      string               `json:"unit"`
}

type matchResponse struct {
	OK      bool                 `json:"ok"`
	Matches []models.MatchedPair `json:"matches"`
	Summary matcher.Summary      `json:"summary"`
}

// handleMatch matches JSON point sets synchronously. Reference records
// carry their sky position in "sky"; observed records are projected from x, y.
func (s *Server) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	opts := s.opts
	if req.Radius != 0 || req.Unit != "" {
		radius, err := config.ToArcsec(req.Radius, req.Unit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		opts.RadiusArcsec = radius
	}

	pairs, summary, _, err := pipeline.Match(c.Request.Context(), req.Observed, req.Reference, opts)
	switch {
	case errors.Is(err, matcher.ErrInvalidConfiguration):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	case errors.Is(err, matcher.ErrNoMatchesFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, matchResponse{OK: true, Matches: pairs, Summary: summary})
}
