package controllers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	json "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/api/authenticator"
	"github.com/taigaio/taiga/internal/api/response"
	"github.com/taigaio/taiga/internal/i18n"
	"github.com/taigaio/taiga/internal/perrors"
	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/access"
)

// User values set by the api middlewares
const (
	RequestContextKey = "traceCtx"
	UserClaimsKey     = "userClaims"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// requestContext returns the context prepared by the middlewares (trace and translations),
// or Background when the handler runs without them.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if stdCtx, ok := ctx.UserValue(RequestContextKey).(context.Context); ok && stdCtx != nil {
		return stdCtx
	}
	return context.Background()
}

// parseBody decodes and validates the body into target. On failure the error response is
// already written.
func parseBody(ctx *fasthttp.RequestCtx, stdCtx context.Context, target any) bool {
	t := i18n.FromContext(stdCtx)

	body := ctx.PostBody()
	if len(body) == 0 {
		writeError(ctx, stdCtx, perrors.NewErrInvalidRequest(t.Gettext(i18n.MsgInvalidRequest), errors.New("request body is empty")))
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		writeError(ctx, stdCtx, perrors.NewErrInvalidRequest(t.Gettext(i18n.MsgInvalidRequest), err))
		return false
	}

	err := validate.Struct(target)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fields := make([]map[string]interface{}, 0, len(validationErrors))
		for _, fe := range validationErrors {
			fields = append(fields, map[string]interface{}{
				"field":  fe.Field(),
				"detail": fmt.Sprintf("validation failed for tag %q", fe.Tag()),
			})
		}
		msg := t.Gettext(i18n.MsgInvalidField, validationErrors[0].Field())
		writeError(ctx, stdCtx, perrors.NewErrUnprocessable(msg, err, fields...))
		return false
	}

	writeError(ctx, stdCtx, perrors.NewErrInvalidRequest(t.Gettext(i18n.MsgInvalidRequest), err))
	return false
}

// writeError writes err translated to an api error
func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	perr := apiError(stdCtx, err)
	response.NewResponse[any](stdCtx, perr.Message, nil).WithError(perr).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (uuid.UUID, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(val)
}

func requireStringQuery(ctx *fasthttp.RequestCtx, key string) (string, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return "", fmt.Errorf("%s parameter is required", key)
	}

	return string(raw), nil
}

// claimsFrom returns the verified token claims of the request, nil for anonymous requests
func claimsFrom(ctx *fasthttp.RequestCtx) *authenticator.UserClaims {
	claims, _ := ctx.UserValue(UserClaimsKey).(*authenticator.UserClaims)
	return claims
}

func subjectFrom(ctx *fasthttp.RequestCtx) access.Subject {
	if claims := claimsFrom(ctx); claims != nil {
		return access.UserSubject(claims.UserID)
	}
	return access.AnonymousSubject()
}

// requireUser writes a 401 for anonymous requests
func requireUser(ctx *fasthttp.RequestCtx, stdCtx context.Context) (*authenticator.UserClaims, bool) {
	claims := claimsFrom(ctx)
	if claims == nil {
		t := i18n.FromContext(stdCtx)
		writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeUnauthorized, t.Gettext(i18n.MsgUnauthorized), nil))
		return nil, false
	}
	return claims, true
}

// authorize runs guard on target for the requester. A denial is answered with 403 and a
// missing target with 404.
func authorize(ctx *fasthttp.RequestCtx, stdCtx context.Context, svc *services.Services, guard access.Guard, target access.Target) bool {
	if err := svc.Access.Check(stdCtx, subjectFrom(ctx), guard, target); err != nil {
		writeError(ctx, stdCtx, err)
		return false
	}
	return true
}
