package flag

import (
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin"

	"github.com/bililive-go/shadowreplay/src/configs"
	"github.com/bililive-go/shadowreplay/src/consts"
)

var (
	app = kingpin.New(consts.AppName, "直播回放缓存与切片工具")

	Debug      = app.Flag("debug", "开启调试模式").Default("false").Bool()
	Conf       = app.Flag("config", "配置文件路径").Short('c').Default("").String()
	Output     = app.Flag("output", "输出目录").Short('o').Default("./").String()
	Bind       = app.Flag("bind", "HTTP 服务监听地址").Default(":8080").String()
	FfmpegPath = app.Flag("ffmpeg", "ffmpeg 可执行文件路径").Default("").String()
	Interval   = app.Flag("interval", "直播状态检测间隔（秒）").Short('t').Default("30").Int()
)

func init() {
	app.Version(consts.Version())
	kingpin.MustParse(app.Parse(os.Args[1:]))
}

// GenConfigFromFlags 没有配置文件时由命令行参数生成配置
func GenConfigFromFlags() *configs.Config {
	cfg := configs.NewConfig()
	cfg.RPC.Bind = *Bind
	cfg.Debug = *Debug
	cfg.Interval = *Interval
	cfg.OutPutPath = *Output
	cfg.FfmpegPath = *FfmpegPath
	cfg.AppDataPath = filepath.Join(*Output, ".appdata")
	cfg.Clip.OutPutPath = filepath.Join(*Output, "clips")
	return cfg
}
