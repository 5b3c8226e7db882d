package xhttp

import (
	"os"
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/valyala/fasthttp"
)

type RequestHeader = fasthttp.RequestHeader
type ResponseHeader = fasthttp.ResponseHeader
type Server = fasthttp.Server

// ServerOption carries the knobs the services actually tune. Zero values
// fall back to DefaultServerOption.
type ServerOption struct {
	Name string

	// idle keep-alive connections are closed after this long, otherwise they
	// pile up as open files under load
	IdleTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	ReadBufferSize  int
	WriteBufferSize int

	// 4MB keeps settings payloads comfortable and rejects junk
	MaxRequestBodySize int

	Concurrency   int
	MaxConnsPerIP int

	Logger logger.Logger
}

var DefaultServerOption = ServerOption{
	Name:               "review-followup",
	IdleTimeout:        time.Second * 10,
	ReadTimeout:        time.Millisecond * 2500,
	WriteTimeout:       time.Millisecond * 2500,
	ReadBufferSize:     1024 * 4,
	WriteBufferSize:    1024 * 4,
	MaxRequestBodySize: 4 * 1024 * 1024,
	Concurrency:        30_000,
	MaxConnsPerIP:      10_000,
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	lg := options.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}
	return &fasthttp.Server{
		Handler: NotFoundHandler,
		ErrorHandler: func(ctx *RequestCtx, err error) {
			logger.Warn("[xhttp] connection error", "error", err)
		},
		Name:                  options.Name,
		Concurrency:           options.Concurrency,
		ReadBufferSize:        options.ReadBufferSize,
		WriteBufferSize:       options.WriteBufferSize,
		ReadTimeout:           options.ReadTimeout,
		WriteTimeout:          options.WriteTimeout,
		IdleTimeout:           options.IdleTimeout,
		MaxConnsPerIP:         options.MaxConnsPerIP,
		MaxRequestBodySize:    options.MaxRequestBodySize,
		TCPKeepalive:          true,
		NoDefaultServerHeader: true,
		NoDefaultContentType:  true,
		CloseOnShutdown:       true,
		Logger:                lg,
	}
}

func NewServer(options ServerOption) *Engine {
	merged := DefaultServerOption
	if options.Name != "" {
		merged.Name = options.Name
	}
	if options.IdleTimeout > 0 {
		merged.IdleTimeout = options.IdleTimeout
	}
	if options.ReadTimeout > 0 {
		merged.ReadTimeout = options.ReadTimeout
	}
	if options.WriteTimeout > 0 {
		merged.WriteTimeout = options.WriteTimeout
	}
	if options.ReadBufferSize > 0 {
		merged.ReadBufferSize = options.ReadBufferSize
	}
	if options.WriteBufferSize > 0 {
		merged.WriteBufferSize = options.WriteBufferSize
	}
	if options.MaxRequestBodySize > 0 {
		merged.MaxRequestBodySize = options.MaxRequestBodySize
	}
	if options.Concurrency > 0 {
		merged.Concurrency = options.Concurrency
	}
	if options.MaxConnsPerIP > 0 {
		merged.MaxConnsPerIP = options.MaxConnsPerIP
	}
	merged.Logger = options.Logger

	return &Engine{
		Server: newServer(merged),
		Router: CreateDefaultRouter(),
		option: merged,
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption)
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

// DoRouting installs the router as handler and wraps it with the middleware
// chain. The first registered middleware runs first.
func (e *Engine) DoRouting() {
	for method, route := range e.Router.List() {
		for _, r := range route {
			logger.Debug("[xhttp] route", "method", method, "path", r)
		}
	}
	e.Server.Handler = e.Router.Handler

	chain := slices.Clone(e.middle)
	slices.Reverse(chain)
	for i, m := range chain {
		e.Server.Handler = m(e.Server.Handler)
		logger.Debug("[xhttp] middleware registered", "order", len(chain)-i, "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
}

// Use adds middleware to the chain which is run for every request.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown gracefully shuts down the server without interrupting any active connections.
func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down", "pid", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
