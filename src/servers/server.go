package servers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/instance"
	applog "github.com/bililive-go/shadowreplay/src/log"
	"github.com/bililive-go/shadowreplay/src/metrics"
	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
	"github.com/bililive-go/shadowreplay/src/recorders"
	"github.com/bililive-go/shadowreplay/src/webapp"
)

type Server struct {
	server *http.Server
	hub    *SSEHub
}

func NewServer(ctx context.Context) *Server {
	inst := instance.GetInstance(ctx)
	bind := configs.NewConfig().RPC.Bind
	if cfg := configs.GetCurrentConfig(); cfg != nil {
		bind = cfg.RPC.Bind
	}
	hub := GetSSEHub()
	RegisterSSEBroadcasters(hub)
	s := &Server{
		server: &http.Server{
			Addr:              bind,
			Handler:           initMux(ctx, hub),
			ReadHeaderTimeout: 10 * time.Second,
		},
		hub: hub,
	}
	if inst != nil {
		inst.Server = s
	}
	return s
}

// newRegistry 每个 server 使用独立的 registry
func newRegistry(ctx context.Context) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	reg.MustRegister(metrics.Collectors()...)
	if inst := instance.GetInstance(ctx); inst != nil {
		if m, ok := inst.RecorderManager.(recorders.Manager); ok {
			reg.MustRegister(metrics.NewRecorderCollector(m.RecorderCount))
		}
	}
	return reg
}

func initMux(ctx context.Context, hub *SSEHub) http.Handler {
	m := mux.NewRouter()
	m.Use(log, withInstance(ctx))

	m.HandleFunc("/api/info", getInfo).Methods("GET")
	m.HandleFunc("/api/config", getConfig).Methods("GET")

	m.HandleFunc("/api/recorders", getRecorders).Methods("GET")
	m.HandleFunc("/api/recorders", addRecorder).Methods("POST")
	room := m.PathPrefix("/api/recorders/{platform}/{room}").Subrouter()
	room.HandleFunc("", getRecorder).Methods("GET")
	room.HandleFunc("", removeRecorder).Methods("DELETE")
	room.HandleFunc("/archives", getArchives).Methods("GET")
	room.HandleFunc("/archives/{live_id}", getArchive).Methods("GET")
	room.HandleFunc("/archives/{live_id}", deleteArchive).Methods("DELETE")
	room.HandleFunc("/archives/{live_id}/danmu", getDanmu).Methods("GET")
	room.HandleFunc("/archives/{live_id}/playlist.m3u8", getPlaylist).Methods("GET")
	room.HandleFunc(`/archives/{live_id}/{file:[0-9]+\.ts}`, getSegment).Methods("GET")
	room.HandleFunc("/archives/{live_id}/clip", clipArchive).Methods("POST")

	m.HandleFunc("/api/rooms/{platform}/{room}/logs", getLogs).Methods("GET")
	m.HandleFunc("/api/danmaku", sendDanmaku).Methods("POST")

	m.HandleFunc("/api/media/remux", remuxMedia).Methods("POST")
	m.HandleFunc("/api/media/audio", extractAudio).Methods("POST")
	m.HandleFunc("/api/media/subtitle", encodeSubtitle).Methods("POST")

	m.HandleFunc("/api/stats/total_length", getTotalLength).Methods("GET")
	m.HandleFunc("/api/stats/today_count", getTodayCount).Methods("GET")
	m.HandleFunc("/api/stats/system", getSystemStats).Methods("GET")
	m.HandleFunc("/api/records/recent", getRecentRecords).Methods("GET")

	m.HandleFunc("/api/accounts", getAccounts).Methods("GET")
	m.HandleFunc("/api/accounts", addAccount).Methods("POST")
	m.HandleFunc("/api/accounts/{platform}/{uid}", updateAccount).Methods("PUT")
	m.HandleFunc("/api/accounts/{platform}/{uid}", removeAccount).Methods("DELETE")

	m.HandleFunc("/api/messages", getMessages).Methods("GET")
	m.HandleFunc("/api/messages/{id}/read", readMessage).Methods("PUT")
	m.HandleFunc("/api/messages/{id}", deleteMessage).Methods("DELETE")

	m.HandleFunc("/api/events", sseHandler(hub)).Methods("GET")
	m.Handle("/metrics", promhttp.HandlerFor(newRegistry(ctx), promhttp.HandlerOpts{}))

	if dir, err := webapp.Dir(); err == nil {
		m.PathPrefix("/").Handler(webapp.Handler(dir))
	} else {
		applog.GetLogger().WithError(err).Info("webapp disabled")
	}
	return m
}

func (s *Server) Start(ctx context.Context) error {
	inst := instance.GetInstance(ctx)
	if inst != nil {
		inst.WaitGroup.Add(1)
	}
	bilisentry.Go(func() {
		switch err := s.server.ListenAndServe(); {
		case errors.Is(err, http.ErrServerClosed):
			applog.GetLogger().Info("Server close")
		default:
			applog.GetLogger().WithError(err).Error("Server error")
		}
	})
	applog.GetLogger().WithFields(logrus.Fields{"addr": s.server.Addr}).Info("Server start")
	return nil
}

func (s *Server) Close(ctx context.Context) {
	s.hub.Close()
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx2); err != nil {
		applog.GetLogger().WithError(err).Error("failed to shutdown server")
	}
	if inst := instance.GetInstance(ctx); inst != nil {
		inst.WaitGroup.Done()
	}
}
