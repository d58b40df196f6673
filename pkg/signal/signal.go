package signal

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Handlers 信号回调；两个回调都只应做原子操作和日志
type Handlers struct {
	OnReload   func()
	OnShutdown func()
}

// Notify 监听 SIGHUP（重载）和 SIGINT/SIGTERM（退出），返回停止监听的函数
func Notify(logger *zap.Logger, h Handlers) (stop func()) {
	sigChan := make(chan os.Signal, 8)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigChan:
				dispatch(logger, h, sig)
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func dispatch(logger *zap.Logger, h Handlers, sig os.Signal) {
	switch sig {
	case syscall.SIGHUP:
		if h.OnReload != nil {
			h.OnReload()
		}
	case syscall.SIGINT, syscall.SIGTERM:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		if h.OnShutdown != nil {
			h.OnShutdown()
		}
	}
}
