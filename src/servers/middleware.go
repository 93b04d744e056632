package servers

import (
	"context"
	"net/http"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/shadowreplay/src/instance"
	applog "github.com/bililive-go/shadowreplay/src/log"
)

func log(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}
		w.Header().Set("X-Request-Id", id)
		applog.GetLogger().WithFields(logrus.Fields{
			"Method":     r.Method,
			"Path":       r.RequestURI,
			"RemoteAddr": r.RemoteAddr,
			"RequestId":  id,
		}).Debug("Http Request")
		handler.ServeHTTP(w, r)
	})
}

// withInstance 让 handler 可以通过 instance.GetInstance(r.Context()) 取得各模块
func withInstance(ctx context.Context) func(http.Handler) http.Handler {
	inst := instance.GetInstance(ctx)
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if inst != nil && instance.GetInstance(r.Context()) == nil {
				r = r.WithContext(instance.WithInstance(r.Context(), inst))
			}
			handler.ServeHTTP(w, r)
		})
	}
}
