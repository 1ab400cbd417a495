package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/perrors"
)

// Response is the JSON envelope of every API answer
type Response[T any] struct {
	ctx          context.Context
	ErrorDetails perrors.Err `json:"errorDetails"`
	Error        bool        `json:"error"`
	Message      string      `json:"message"`
	Data         T           `json:"data"`
	Status       int         `json:"status"`
}

func NewResponse[T any](ctx context.Context, msg string, data T) *Response[T] {
	return &Response[T]{
		ctx:     ctx,
		Message: msg,
		Data:    data,
		Status:  http.StatusOK,
	}
}

// WithError turns the response into an error answer. Errors that are not a perrors.Err
// become internal server errors.
func (r *Response[T]) WithError(err error) *Response[T] {
	var perr perrors.Err
	if !errors.As(err, &perr) {
		perr = perrors.NewErrInternalServerError(r.Message, err).(perrors.Err)
	}

	r.Status = perr.HttpStatus()
	r.ErrorDetails = perr
	r.Error = true
	return r
}

// hidesCause tells whether the wrapped error must stay out of the body. Authentication,
// access and server failures only expose their code, so a denial never tells which
// permission or membership was missing.
func hidesCause(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return status >= http.StatusInternalServerError
}

// Write sets the `content-type` to `application/json` and writes the response to the fasthttp context.
func (r *Response[T]) Write(ctx *fasthttp.RequestCtx) {
	if r.Error {
		if r.Status >= http.StatusInternalServerError {
			r.ErrorDetails.Print(r.ctx)
		} else {
			slog.InfoContext(r.ctx, "Request rejected",
				slog.String("code", r.ErrorDetails.Code.Code),
				slog.Int("status", r.Status),
				slog.String("error", r.ErrorDetails.Err))
		}
		if hidesCause(r.Status) {
			r.ErrorDetails.Err = r.ErrorDetails.Code.Code
		}
	}

	ctx.Response.Header.Set("content-type", "application/json")
	ctx.SetStatusCode(r.Status)

	body, err := json.Marshal(r)
	if err != nil {
		slog.ErrorContext(r.ctx, "Unable to json encode response", slog.Any("error", err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.SetBody(body)
}
