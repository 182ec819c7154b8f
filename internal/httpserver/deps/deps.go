package deps

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/command"
	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/query"
	"github.com/MrSnakeDoc/shelf/internal/stats"
	"github.com/MrSnakeDoc/shelf/internal/store"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedHosts    []string      // Host headers allowed to access the server
	AllowedCIDRS    []string      // IPs allowed to access readyz/metrics endpoints
	TrustProxy      bool          // true if running behind a trusted reverse proxy (e.g., cloudflared)
	PrincipalHeader string        // header carrying the authenticated user id
	CORSOrigins     []string      // browser origins allowed to call the API
	RequestTimeout  time.Duration // applied to every non-streaming API route
	RateBurst       int           // mutation burst per caller
	RatePerMinute   int           // mutation refill per caller per minute
	SSEKeepAlive    time.Duration // keepalive comment interval on event streams

	StoreKind string      // "memory" | "redis" | "sqlite"
	Store     store.Store // backing store, pinged by readyz
	Bus       *events.Bus // change event bus the subscription routes attach to
	Queries   *query.Service
	Commands  *command.Service
	Stats     *stats.Service

	MetricsHandler http.Handler // nil when metrics are disabled
}
