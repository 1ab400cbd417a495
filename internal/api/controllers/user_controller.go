package controllers

import (
	"strconv"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/user"
)

func RegisterUserRoutes(r *router.Group, svc *services.Services) {
	// Sign up
	r.POST("/users", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		var body user.CreateUserRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		created, err := svc.User.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "User created successfully", created)
	})

	r.GET("/users/search", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if _, ok := requireUser(ctx, stdCtx); !ok {
			return
		}

		limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
		users, err := svc.User.Search(stdCtx, string(ctx.QueryArgs().Peek("text")), limit)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Users retrieved successfully", users)
	})
}
