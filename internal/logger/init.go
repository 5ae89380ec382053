package logger

import "log"

// InitLogger 初始化进程级日志格式
func InitLogger() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
}
