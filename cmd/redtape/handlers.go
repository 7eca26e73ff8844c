package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/redtapehq/redtape/blobstore"
	"github.com/redtapehq/redtape/kvstore"
	"github.com/redtapehq/redtape/tracker"

	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type StoreBlobOutput struct {
	Key string `json:"key"`
}

type GetBlobOutput struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type PageRequestsOutput struct {
	URL      string `json:"url"`
	Requests int64  `json:"requests"`
}

type OpCountOutput struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// blobError maps storage errors to HTTP responses. Missing keys and decode
// mismatches are the caller's problem; everything else is ours.
func (srv *Server) blobError(c echo.Context, err error) error {
	if errors.Is(err, kvstore.ErrNotFound) {
		return c.JSON(404, GenericError{
			Error:   "KeyNotFound",
			Message: fmt.Sprintf("%s", err),
		})
	}
	if errors.Is(err, blobstore.ErrDecode) {
		return c.JSON(400, GenericError{
			Error:   "DecodeFailed",
			Message: fmt.Sprintf("%s", err),
		})
	}
	return c.JSON(500, GenericError{
		Error:   "InternalError",
		Message: fmt.Sprintf("%s", err),
	})
}

func (srv *Server) HandleStoreBlob(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, GenericError{
			Error:   "BadRequestBody",
			Message: fmt.Sprintf("%s", err),
		})
	}

	var value any
	switch typ := c.QueryParam("as"); typ {
	case "", "text":
		value = string(body)
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
		if err != nil {
			return c.JSON(400, GenericError{
				Error:   "InvalidValue",
				Message: fmt.Sprintf("%s", err),
			})
		}
		value = n
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(string(body)), 64)
		if err != nil {
			return c.JSON(400, GenericError{
				Error:   "InvalidValue",
				Message: fmt.Sprintf("%s", err),
			})
		}
		value = f
	case "raw":
		value = body
	default:
		return c.JSON(400, GenericError{
			Error:   "UnknownValueType",
			Message: fmt.Sprintf("unknown value type: %s", typ),
		})
	}

	key, err := srv.blobs.Put(ctx, value)
	if err != nil {
		return srv.blobError(c, err)
	}
	return c.JSON(200, StoreBlobOutput{Key: key})
}

func (srv *Server) HandleGetBlob(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.Param("key")
	switch typ := c.QueryParam("as"); typ {
	case "", "text":
		val, err := srv.blobs.GetString(ctx, key)
		if err != nil {
			return srv.blobError(c, err)
		}
		return c.JSON(200, GetBlobOutput{Key: key, Value: val})
	case "int":
		n, err := srv.blobs.GetInt64(ctx, key)
		if err != nil {
			return srv.blobError(c, err)
		}
		return c.JSON(200, GetBlobOutput{Key: key, Value: n})
	case "float":
		f, err := srv.blobs.GetFloat64(ctx, key)
		if err != nil {
			return srv.blobError(c, err)
		}
		return c.JSON(200, GetBlobOutput{Key: key, Value: f})
	case "raw":
		raw, err := srv.blobs.Get(ctx, key, nil)
		if err != nil {
			return srv.blobError(c, err)
		}
		return c.Blob(200, "application/octet-stream", raw.([]byte))
	default:
		return c.JSON(400, GenericError{
			Error:   "UnknownValueType",
			Message: fmt.Sprintf("unknown decode type: %s", typ),
		})
	}
}

func (srv *Server) HandleGetPage(c echo.Context) error {
	ctx := c.Request().Context()

	url := c.QueryParam("url")
	if url == "" {
		return c.JSON(400, GenericError{
			Error:   "MissingParameter",
			Message: "need a url query parameter",
		})
	}
	content, err := srv.pages.Get(ctx, url)
	if err != nil {
		return c.JSON(502, GenericError{
			Error:   "FetchFailed",
			Message: fmt.Sprintf("%s", err),
		})
	}
	return c.String(200, content)
}

func (srv *Server) HandlePageRequests(c echo.Context) error {
	ctx := c.Request().Context()

	url := c.QueryParam("url")
	if url == "" {
		return c.JSON(400, GenericError{
			Error:   "MissingParameter",
			Message: "need a url query parameter",
		})
	}
	count, err := srv.pages.Requests(ctx, url)
	if err != nil {
		return c.JSON(500, GenericError{
			Error:   "InternalError",
			Message: fmt.Sprintf("%s", err),
		})
	}
	return c.JSON(200, PageRequestsOutput{URL: url, Requests: count})
}

func (srv *Server) HandleOpCount(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.Param("name")
	count, err := tracker.Handle(srv.kv, name).Count(ctx)
	if err != nil {
		return c.JSON(500, GenericError{
			Error:   "InternalError",
			Message: fmt.Sprintf("%s", err),
		})
	}
	return c.JSON(200, OpCountOutput{Name: name, Count: count})
}

func (srv *Server) HandleOpReplay(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.Param("name")
	var buf bytes.Buffer
	if err := tracker.Replay(ctx, &buf, tracker.Handle(srv.kv, name)); err != nil {
		return c.JSON(500, GenericError{
			Error:   "InternalError",
			Message: fmt.Sprintf("%s", err),
		})
	}
	return c.String(200, buf.String())
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		slog.Warn("redtape-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "redtape", Message: errorMessage})
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "redtape"})
}
