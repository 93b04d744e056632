package interfaces

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Module 是可以随程序启动与关闭的组件
type Module interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
}

type Logger struct {
	*logrus.Logger
}
