package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/questions"
	"github.com/crimson-sun/screener/internal/validate"
)

type errorBody struct {
	Error    string          `json:"error"`
	Detail   string          `json:"detail"`
	Problems []model.Problem `json:"problems,omitempty"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": apiName, "status": "running", "version": apiVersion})
}

// health always answers 200; readiness is carried in the body.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Health())
}

func (s *Server) questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": questions.Map()})
}

func (s *Server) schema(c *gin.Context) {
	c.Data(http.StatusOK, "application/schema+json", validate.Schema())
}

func (s *Server) predict(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody{
				Error:  "validation_error",
				Detail: "request body too large",
			})
			return
		}
		c.JSON(http.StatusBadRequest, errorBody{Error: "validation_error", Detail: "could not read request body"})
		return
	}

	sub, err := validate.Decode(body)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	out, err := s.svc.Evaluate(ctx, sub)
	if err != nil {
		writeError(c, err)
		return
	}

	rec := audit.NewRecord("http", s.svc.ClassifierName(), out.Features, out.Verdict)
	if err := s.audit.Write(ctx, rec); err != nil {
		slog.Warn("audit write failed", "id", rec.ID, "error", err)
	}
	c.JSON(http.StatusOK, out.Verdict)
}

// writeError maps the error taxonomy onto HTTP status codes. Server-side
// faults are logged with their cause and answered with a generic detail.
func writeError(c *gin.Context, err error) {
	var (
		verr     *model.ValidationError
		encErr   *model.EncodingError
		internal *model.InternalError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:    "validation_error",
			Detail:   verr.Error(),
			Problems: verr.Problems,
		})
	case errors.As(err, &encErr):
		c.JSON(http.StatusBadRequest, errorBody{Error: "encoding_error", Detail: encErr.Error()})
	case errors.Is(err, model.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "service_unavailable", Detail: err.Error()})
	default:
		op := "unknown"
		if errors.As(err, &internal) {
			op = internal.Op
		}
		slog.Error("prediction failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal_error", Detail: "error making prediction"})
	}
}
