package main

import (
	"chatcal/core/logger"
	"chatcal/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
