package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tordrt/bizobj"
	"github.com/tordrt/bizobj/internal/quoting"
)

// POST /api/customers
func (s *Server) CreateCustomer(c *gin.Context) {
	payload, ok := bindObject(c)
	if !ok {
		return
	}

	customer := quoting.NewCustomer(s.mapper)
	if err := customer.Load(payload, bizobj.ObjectLoad); err != nil {
		s.fail(c, err)
		return
	}
	if err := customer.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusCreated, customer.Entity, false)
}

// GET /api/customers/:id
func (s *Server) GetCustomer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	customer := quoting.NewCustomer(s.mapper)
	if err := customer.GetByID(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusOK, customer.Entity, true)
}

// PUT /api/customers/:id
func (s *Server) UpdateCustomer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	payload, ok := bindObject(c)
	if !ok {
		return
	}

	customer := quoting.NewCustomer(s.mapper)
	if err := customer.GetByID(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	if err := customer.Load(payload, bizobj.ObjectLoad); err != nil {
		s.fail(c, err)
		return
	}
	if err := customer.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	// Properties not in the payload still hold ciphertext from the fetch,
	// so the response is re-read.
	fresh := quoting.NewCustomer(s.mapper)
	if err := fresh.GetByID(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, fresh.Entity, true)
}

// POST /api/agencies
func (s *Server) CreateAgency(c *gin.Context) {
	payload, ok := bindObject(c)
	if !ok {
		return
	}

	agency := quoting.NewAgency(s.mapper)
	if err := agency.Load(payload, bizobj.ObjectLoad); err != nil {
		s.fail(c, err)
		return
	}
	if err := agency.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusCreated, agency.Entity, false)
}

// GET /api/agencies/:id
func (s *Server) GetAgency(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	agency := quoting.NewAgency(s.mapper)
	if err := agency.GetByID(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	if err := agency.FetchChildren(ctx, "contacts"); err != nil {
		s.fail(c, err)
		return
	}
	if err := agency.LoadUnderwriterIDs(ctx); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusOK, agency.Entity, true)
}

// POST /api/underwriters
func (s *Server) CreateUnderwriter(c *gin.Context) {
	payload, ok := bindObject(c)
	if !ok {
		return
	}

	underwriter := quoting.NewUnderwriter(s.mapper)
	if err := underwriter.Load(payload, bizobj.ObjectLoad); err != nil {
		s.fail(c, err)
		return
	}
	if err := underwriter.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusCreated, underwriter.Entity, false)
}

// GET /api/underwriters/:id
func (s *Server) GetUnderwriter(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	underwriter := quoting.NewUnderwriter(s.mapper)
	if err := underwriter.GetByID(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusOK, underwriter.Entity, false)
}

func bindObject(c *gin.Context) (map[string]any, bool) {
	var obj map[string]any
	if err := c.ShouldBindJSON(&obj); err != nil || obj == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return nil, false
	}
	return obj, true
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// respond writes the entity. When fetched is set, encrypted values hold
// ciphertext and are decrypted first.
func (s *Server) respond(c *gin.Context, status int, e *bizobj.Entity, fetched bool) {
	body, err := s.view(e, fetched)
	if err != nil {
		s.log.Error().Err(err).Str("table", e.Schema().Table()).Int64("id", e.ID()).Msg("failed to decrypt")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, body)
}

// view renders an entity as JSON fields. Hashed values are never returned.
func (s *Server) view(e *bizobj.Entity, fetched bool) (gin.H, error) {
	out := gin.H{"id": e.ID()}
	for _, p := range e.Schema().Properties() {
		switch {
		case p.Hashed:
			continue
		case p.Class != nil:
			children := e.Children(p.Name)
			list := make([]gin.H, 0, len(children))
			for _, child := range children {
				v, err := s.view(child, fetched)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			out[p.Name] = list
		case p.Encrypted && fetched:
			ct := e.String(p.Name)
			if ct == "" {
				out[p.Name] = e.Value(p.Name)
				continue
			}
			plain, err := s.dec.Decrypt(ct)
			if err != nil {
				return nil, err
			}
			out[p.Name] = plain
		default:
			out[p.Name] = e.Value(p.Name)
		}
	}
	return out, nil
}

// fail maps a mapper error to its HTTP status. Only validation and conflict
// messages reach the client.
func (s *Server) fail(c *gin.Context, err error) {
	var loadErr *bizobj.LoadError
	switch {
	case errors.As(err, &loadErr):
		// stored row no longer validates
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("stored row failed to load")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	case errors.Is(err, bizobj.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bizobj.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, bizobj.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "value already in use, choose another value"})
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
