package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/api/authenticator"
	"github.com/taigaio/taiga/internal/i18n"
	"github.com/taigaio/taiga/internal/perrors"
	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/user"
)

const (
	accessTokenCookie = "access_token"
	loginStateTTL     = 5 * time.Minute
)

// TokenRequest logs in with a username or an email
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type oidcProfile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func RegisterAuthRoutes(r *router.Group, svc *services.Services, auth *authenticator.Authenticator) {
	r.POST("/auth/token", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req TokenRequest
		if !parseBody(ctx, stdCtx, &req) {
			return
		}

		u, err := svc.User.Authenticate(stdCtx, req.Username, req.Password)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		token, err := auth.GenerateToken(u)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		setAccessCookie(ctx, token, time.Now().Add(auth.TokenTTL()))
		writeOK(ctx, stdCtx, "success", TokenResponse{Token: token, User: u})
	})

	r.GET("/auth/me", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		u, err := svc.User.GetByID(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "success", u)
	})

	r.POST("/auth/logout", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		setAccessCookie(ctx, "", time.Now().Add(-1*time.Hour))
		writeOK(ctx, stdCtx, "Logged out successfully", nil)
	})

	r.GET("/auth/oidc/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if !auth.OIDCEnabled() {
			writeError(ctx, stdCtx, authenticator.ErrOIDCDisabled)
			return
		}

		redirect := string(ctx.QueryArgs().Peek("redirect"))
		if redirect == "" || !strings.HasPrefix(redirect, "/") {
			redirect = "/"
		}

		state, err := auth.NewState(redirect, loginStateTTL)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		ctx.Redirect(auth.AuthCodeURL(state), fasthttp.StatusTemporaryRedirect)
	})

	// Single sign-on only logs in users already registered with the verified email
	r.GET("/auth/oidc/callback", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		t := i18n.FromContext(stdCtx)
		if !auth.OIDCEnabled() {
			writeError(ctx, stdCtx, authenticator.ErrOIDCDisabled)
			return
		}

		encodedState := ctx.QueryArgs().Peek("state")
		code := ctx.QueryArgs().Peek("code")
		if len(encodedState) == 0 || len(code) == 0 {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest(t.Gettext(i18n.MsgInvalidRequest), errors.New("missing parameters")))
			return
		}

		state, err := auth.VerifySignedState(string(encodedState))
		if err != nil {
			writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeBadRequest, t.Gettext(i18n.MsgInvalidState), err))
			return
		}

		token, err := auth.Exchange(stdCtx, string(code))
		if err != nil {
			writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeUnauthorized, t.Gettext(i18n.MsgInvalidCredentials), err))
			return
		}

		idToken, err := auth.VerifyIDToken(stdCtx, token)
		if err != nil {
			writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeUnauthorized, t.Gettext(i18n.MsgInvalidCredentials), err))
			return
		}

		var profile oidcProfile
		if err := idToken.Claims(&profile); err != nil {
			writeError(ctx, stdCtx, err)
			return
		}
		if profile.Email == "" || !profile.EmailVerified {
			writeError(ctx, stdCtx, user.ErrInvalidCredentials)
			return
		}

		u, err := svc.User.GetByEmail(stdCtx, strings.ToLower(profile.Email))
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				err = user.ErrInvalidCredentials
			}
			writeError(ctx, stdCtx, err)
			return
		}
		if !u.IsActive {
			writeError(ctx, stdCtx, user.ErrInactiveUser)
			return
		}

		accessToken, err := auth.GenerateToken(u)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		setAccessCookie(ctx, accessToken, time.Now().Add(auth.TokenTTL()))
		ctx.Redirect(state.Redirect, fasthttp.StatusFound)
	})
}

func setAccessCookie(ctx *fasthttp.RequestCtx, value string, expire time.Time) {
	var cookie fasthttp.Cookie
	cookie.SetKey(accessTokenCookie)
	cookie.SetValue(value)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(ctx.IsTLS())
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetExpire(expire)
	ctx.Response.Header.SetCookie(&cookie)
}
