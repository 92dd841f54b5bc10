package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/uc-package/swimctl/internal/logger"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

// exitError 携带进程退出码，不再打印错误信息
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	err := newRootCommand().Execute()
	logger.Sync()
	if err == nil {
		return
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
	os.Exit(2)
}
