package mockserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reoring/postq/codec"
	"github.com/reoring/postq/internal/store"
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// schema serves the JSON Schema of a post shape, "post" unless ?name= says
// otherwise.
func (s *Server) schema(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		name = "post"
	}
	js, err := s.schemas.JSONSchema(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, js)
}

func (s *Server) list(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("_limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "_limit must be a non-negative integer")
		}
		limit = n
	}
	recs, err := s.store.List(c.Request().Context(), limit)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) get(c echo.Context) error {
	rec, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func objectBody(c echo.Context) (store.Record, error) {
	m, ok := bodyFrom(c.Request().Context()).(map[string]any)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return store.Record(m), nil
}

// create stores the body as sent, filling in an id and a creation time when
// the client left them out.
func (s *Server) create(c echo.Context) error {
	rec, err := objectBody(c)
	if err != nil {
		return err
	}
	rec = rec.Clone()
	if rec.ID() == "" {
		rec["id"] = s.newID()
	}
	if _, ok := rec["created"]; !ok {
		rec["created"] = codec.FormatRFC3339(s.now())
	}
	out, err := s.store.Create(c.Request().Context(), rec)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

// update merges the body into the stored post for both PUT and PATCH.
func (s *Server) update(c echo.Context) error {
	patch, err := objectBody(c)
	if err != nil {
		return err
	}
	out, err := s.store.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) remove(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "id": id})
}
