// Package api exposes the quoting business objects over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/tordrt/bizobj"
)

// Decrypter opens values written through the mapper's encrypter.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Server holds the collaborators shared by every handler.
type Server struct {
	mapper *bizobj.Mapper
	dec    Decrypter
	log    zerolog.Logger
}

func NewServer(mapper *bizobj.Mapper, dec Decrypter, log zerolog.Logger) *Server {
	return &Server{mapper: mapper, dec: dec, log: log}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/customers", s.CreateCustomer)
		apiGroup.GET("/customers/:id", s.GetCustomer)
		apiGroup.PUT("/customers/:id", s.UpdateCustomer)

		apiGroup.POST("/agencies", s.CreateAgency)
		apiGroup.GET("/agencies/:id", s.GetAgency)

		apiGroup.POST("/underwriters", s.CreateUnderwriter)
		apiGroup.GET("/underwriters/:id", s.GetUnderwriter)
	}

	return r
}

// Run serves the API on addr until the server fails.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("listening")
	return srv.ListenAndServe()
}

const requestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and logs it once it completes.
// An incoming X-Request-ID is kept; otherwise a ULID is generated.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		c.Next()

		log.Info().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
