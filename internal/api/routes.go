package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/taigaio/taiga/internal/api/controllers"
	"github.com/taigaio/taiga/internal/api/response"
	"github.com/taigaio/taiga/internal/i18n"
	"github.com/taigaio/taiga/internal/perrors"
)

var tracePropagator = propagation.TraceContext{}

func (s *Server) initRoutes() fasthttp.RequestHandler {
	r := router.New()

	r.GET("/api/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write([]byte("OK"))
	})

	v2 := r.Group("/api/v2")
	controllers.RegisterAuthRoutes(v2, s.services, s.auth)
	controllers.RegisterUserRoutes(v2, s.services)
	controllers.RegisterWorkspaceRoutes(v2, s.services)
	controllers.RegisterProjectRoutes(v2, s.services)
	controllers.RegisterInvitationRoutes(v2, s.services)

	return s.withMiddlewares(r.Handler)
}

func (s *Server) withMiddlewares(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		s.applyCORS(ctx)
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		start := time.Now()
		uri := ctx.URI()
		requestURI := string(uri.FullURI())
		slog.Info("Started processing", slog.String("method", string(ctx.Method())), slog.String("request_uri", requestURI))

		h := http.Header{}
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			h[string(k)] = []string{string(v)}
		})
		stdCtx := tracePropagator.Extract(ctx, propagation.HeaderCarrier(h))

		lang := s.i18n.Negotiate(string(ctx.Request.Header.Peek("Accept-Language")))
		translations := s.i18n.For(lang)
		stdCtx = i18n.WithTranslations(stdCtx, translations)
		ctx.Response.Header.Set("Content-Language", translations.Language())
		ctx.SetUserValue(controllers.RequestContextKey, stdCtx)

		// Anonymous requests are allowed, a token that does not verify is not
		if accessToken := bearerToken(ctx); accessToken != "" {
			claims, err := s.auth.VerifyAccessToken(accessToken)
			if err != nil {
				t := i18n.FromContext(stdCtx)
				response.NewResponse[any](stdCtx, t.Gettext(i18n.MsgUnauthorized), nil).
					WithError(perrors.New(perrors.ErrCodeUnauthorized, t.Gettext(i18n.MsgUnauthorized), err)).
					Write(ctx)
				return
			}

			// Store user claims in context for downstream handlers
			ctx.SetUserValue(controllers.UserClaimsKey, claims)
		}

		next(ctx)

		slog.Info("Finished processing", slog.String("method", string(ctx.Method())), slog.String("request_uri", requestURI), slog.Int("status", ctx.Response.StatusCode()), slog.Duration("duration", time.Since(start)))
	}
}

func bearerToken(ctx *fasthttp.RequestCtx) string {
	if header := string(ctx.Request.Header.Peek("Authorization")); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return string(ctx.Request.Header.Cookie("access_token"))
}

func (s *Server) applyCORS(ctx *fasthttp.RequestCtx) {
	headers := &ctx.Response.Header
	headers.Set("Access-Control-Allow-Origin", string(ctx.Request.Header.Peek("Origin")))
	headers.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS,PATCH")
	headers.Set("Access-Control-Allow-Headers", s.allowedHeaders)
	headers.Set("Access-Control-Allow-Credentials", "true")
}
