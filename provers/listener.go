package relayer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kysee/zk-knights/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Listener exposes an Orchestrator over HTTP.
type Listener struct {
	orch   *Orchestrator
	router *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

// NewListener creates a new Listener serving orch on addr.
// gatherer backs /metrics and may be nil.
func NewListener(addr string, orch *Orchestrator, gatherer prometheus.Gatherer, log zerolog.Logger) *Listener {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	l := &Listener{
		orch:   orch,
		router: router,
		log:    log.With().Str("component", "listener").Logger(),
	}
	l.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	v1.GET("/status", l.status)
	v1.POST("/prove", l.prove)

	return l
}

func (l *Listener) Handler() http.Handler {
	return l.router
}

// Serve blocks until ctx is done or the server fails.
func (l *Listener) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		l.log.Info().Str("addr", l.server.Addr).Msg("listening")
		errCh <- l.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (l *Listener) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": l.orch.State().String()})
}

// prove answers 200 with the response message, failures included.
// Only a rejected request (bad body, busy, stopped) gets another status.
func (l *Listener) prove(c *gin.Context) {
	var req types.RequestMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ResponseMessage{Error: err.Error()})
		return
	}

	resp, err := l.orch.Prove(req)
	switch {
	case errors.Is(err, ErrBusy):
		c.JSON(http.StatusConflict, types.NewErrorResponse(err))
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}
