package webapp

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("webapp build not found")

// Dir 查找前端构建目录：环境变量 SHADOWREPLAY_WEBAPP_PATH，其次是可执行文件旁的 webapp 目录
func Dir() (string, error) {
	candidates := make([]string, 0, 2)
	if p := os.Getenv("SHADOWREPLAY_WEBAPP_PATH"); p != "" {
		candidates = append(candidates, p)
	}
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), "webapp"))
	}
	for _, p := range candidates {
		if stat, err := os.Stat(p); err == nil && stat.IsDir() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Handler 静态文件服务，找不到的前端路由回退到 index.html
func Handler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
