package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/bililive-go/shadowreplay/src/cmd/shadowreplay/internal"
	"github.com/bililive-go/shadowreplay/src/cmd/shadowreplay/internal/flag"
	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/consts"
	"github.com/bililive-go/shadowreplay/src/database"
	"github.com/bililive-go/shadowreplay/src/instance"
	"github.com/bililive-go/shadowreplay/src/interfaces"
	"github.com/bililive-go/shadowreplay/src/live"
	"github.com/bililive-go/shadowreplay/src/log"
	bilisentry "github.com/bililive-go/shadowreplay/src/pkg/sentry"
	"github.com/bililive-go/shadowreplay/src/pkg/transcoder"
	"github.com/bililive-go/shadowreplay/src/recorders"
	"github.com/bililive-go/shadowreplay/src/servers"
)

var (
	// SentryDSN 编译时通过 -ldflags="-X main.SentryDSN=..." 注入，或设置环境变量 SENTRY_DSN
	SentryDSN = ""
	SentryEnv = "production"
)

func getConfig() (*configs.Config, error) {
	var config *configs.Config
	if *flag.Conf != "" {
		c, err := configs.NewConfigWithFile(*flag.Conf)
		if err != nil {
			return nil, err
		}
		config = c
	} else {
		config = flag.GenConfigFromFlags()
	}
	return config, config.Verify()
}

// applyEnv 环境变量中的密钥优先于配置文件
func applyEnv(config *configs.Config) {
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		p := config.Platforms[live.YouTube.String()]
		p.APIKey = key
		config.Platforms[live.YouTube.String()] = p
	}
}

// restoreRecorders 恢复上次运行时的直播间，单个失败不影响其他直播间
func restoreRecorders(ctx context.Context, logger *interfaces.Logger, db database.Store, rm recorders.Manager) {
	rows, err := db.GetRecorders(ctx)
	if err != nil {
		logger.WithError(err).Error("读取直播间列表失败")
		return
	}
	cfg := configs.GetCurrentConfig()
	for _, row := range rows {
		platform, err := live.ParsePlatform(row.Platform)
		if err != nil {
			logger.WithError(err).Warnf("跳过直播间 %s", row.RoomID)
			continue
		}
		row := row
		bilisentry.GoWithContext(ctx, func(ctx context.Context) {
			account, err := database.PrimaryAccount(ctx, db, row.Platform, cfg.PrimaryAccounts[row.Platform])
			if err != nil {
				logger.WithError(err).Warnf("读取 %s 账号失败", row.Platform)
			}
			if _, err := rm.AddRecorder(ctx, platform, account, row.RoomID); err != nil {
				logger.WithError(err).Warnf("恢复直播间 %s/%s 失败", row.Platform, row.RoomID)
			}
		})
	}
	logger.Infof("restoring %d recorders", len(rows))
}

func main() {
	defer bilisentry.Flush(2 * time.Second)
	defer bilisentry.Recover()

	_ = godotenv.Load()

	config, err := getConfig()
	if err != nil {
		fmt.Fprint(os.Stderr, err.Error())
		os.Exit(1)
	}
	applyEnv(config)
	configs.SetCurrentConfig(config)

	inst := instance.New()
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	ctx := instance.WithInstance(rootCtx, inst)

	logger := log.New(ctx)
	logger.Infof("%s Version: %s Link Start", consts.AppName, consts.Version())
	if config.File != "" {
		logger.Debugf("config path: %s.", config.File)
	} else {
		logger.Debugf("flag: %s used.", os.Args)
	}
	logger.Debugf("%+v", consts.GetAppInfo())

	db, err := database.Open(filepath.Join(config.AppDataPath, "db"))
	if err != nil {
		logger.WithError(err).Fatal("打开数据库失败")
	}
	defer db.Close()
	inst.Database = db
	bilisentry.SetDeviceIDStore(db)

	sentryDSN := SentryDSN
	if sentryDSN == "" {
		sentryDSN = os.Getenv("SENTRY_DSN")
	}
	if config.Sentry.Enable && sentryDSN != "" {
		environment := SentryEnv
		if config.Debug {
			environment = "development"
		}
		if err := bilisentry.Init(sentryDSN, environment, consts.Version()); err != nil {
			logger.WithError(err).Warn("Sentry 初始化失败")
		}
	}

	ffmpeg := config.FfmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpeg); err != nil {
		logger.WithError(err).Warn("FFmpeg binary not found, clip and media tools are disabled")
	} else {
		inst.Transcoder = transcoder.New(ffmpeg)
	}

	rm := recorders.NewManager(ctx, db, inst.Transcoder)
	if config.RPC.Enable {
		if err = servers.NewServer(ctx).Start(ctx); err != nil {
			logger.WithError(err).Fatalf("failed to init server")
		}
	}
	if err = rm.Start(ctx); err != nil {
		logger.Fatalf("failed to init recorder manager, error: %s", err)
	}
	restoreRecorders(ctx, logger, db, rm)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	bilisentry.Go(func() {
		<-c
		logger.Info("Received shutdown signal, closing...")
		rootCancel()
		closeCtx := instance.WithInstance(context.Background(), inst)
		if inst.Server != nil {
			inst.Server.Close(closeCtx)
		}
		inst.RecorderManager.Close(closeCtx)
		logger.Info("Shutdown complete")
	})

	inst.WaitGroup.Wait()
	logger.Info("Bye~")
}
