package consts

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Masterminds/semver/v3"
)

const (
	AppName = "ShadowReplay"
)

var (
	BuildTime  string
	AppVersion string
	GitHash    string
)

// devVersion 未通过 -ldflags 注入版本号时使用
const devVersion = "0.0.0-dev"

type Info struct {
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	BuildTime  string `json:"build_time"`
	GitHash    string `json:"git_hash"`
	Pid        int    `json:"pid"`
	Platform   string `json:"platform"`
	GoVersion  string `json:"go_version"`
}

// GetAppInfo 返回应用信息
// AppVersion 等字段在链接阶段注入，必须在运行时读取
func GetAppInfo() Info {
	return Info{
		AppName:    AppName,
		AppVersion: Version(),
		BuildTime:  BuildTime,
		GitHash:    GitHash,
		Pid:        os.Getpid(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GoVersion:  runtime.Version(),
	}
}

// Version 返回当前程序版本，未注入时返回开发版本号
func Version() string {
	if AppVersion == "" {
		return devVersion
	}
	return AppVersion
}

// IsCompatible 判断由 written 版本写入的数据能否被当前版本读取。
// 主版本号相同，或者数据来自更早的版本时视为兼容；无法解析的版本号一律放行。
func IsCompatible(written string) bool {
	if written == "" {
		return true
	}
	w, err := semver.NewVersion(written)
	if err != nil {
		return true
	}
	cur, err := semver.NewVersion(Version())
	if err != nil {
		return true
	}
	if w.Major() == cur.Major() {
		return true
	}
	return w.LessThan(cur)
}
