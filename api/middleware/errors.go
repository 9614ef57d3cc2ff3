package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/thespaceapp/marketplace/api/web"
	"github.com/thespaceapp/marketplace/api/weberr"
	"github.com/thespaceapp/marketplace/kv"
)

// Errors converts handler errors into JSON responses. Errors carrying a
// response (see weberr) keep their status and body; anything else becomes an
// opaque 500.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			// A lost optimistic-concurrency race is the client's conflict,
			// not a server fault.
			if errors.Is(err, kv.ErrStaleWrite) {
				err = weberr.Conflict(err)
			}

			fields := map[string]interface{}{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			log.WithFields(logrus.Fields(fields)).Error("ERROR")

			if body, code, ok := weberr.Response(err); ok {
				return web.Respond(ctx, w, body, code)
			}

			er := weberr.ErrorResponse{
				Error: http.StatusText(http.StatusInternalServerError),
			}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}
