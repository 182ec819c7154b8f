// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/MrSnakeDoc/shelf/internal/version.Version=v0.1.0 \
//	  -X github.com/MrSnakeDoc/shelf/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/shelf
package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-01-11T18:42:00Z
	GoVersion = runtime.Version()               // toolchain that built the binary
)
