package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler(logger)

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(logger, cfg.Metrics.Path))

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
}

func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Info("starting server", zap.String("addr", s.Addr()))
		s.logRoutes()
	}

	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if s.logger != nil {
			s.logger.Error("server stopped unexpectedly", zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("shutting down server")
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.GET(path, handler, m...)
}

func (s *Server) Post(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.POST(path, handler, m...)
}

func (s *Server) Use(m ...echo.MiddlewareFunc) {
	s.echo.Use(m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) logRoutes() {
	routes := s.echo.Routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	for _, r := range routes {
		s.logger.Debug("route",
			zap.String("method", r.Method),
			zap.String("path", r.Path),
			zap.String("handler", shortenHandlerName(r.Name)))
	}
}

// configureTrustedProxies reads the client address from X-Forwarded-For only
// when the connection comes from a configured proxy. Without any valid entry
// the socket address is used directly.
func configureTrustedProxies(e *echo.Echo, proxies []string, logger *logging.Service) {
	var opts []echo.TrustOption
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		ipNet, err := parseProxy(p)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", p), zap.Error(err))
			}
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}

	if len(opts) == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}

	opts = append([]echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}, opts...)
	e.IPExtractor = echo.ExtractIPFromXFFHeader(opts...)
}

func parseProxy(p string) (*net.IPNet, error) {
	if strings.Contains(p, "/") {
		_, ipNet, err := net.ParseCIDR(p)
		return ipNet, err
	}

	ip := net.ParseIP(p)
	if ip == nil {
		return nil, fmt.Errorf("not an IP address or CIDR: %s", p)
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

func shortenHandlerName(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if len(name) > 80 {
		name = name[:77] + "..."
	}
	return name
}

// jsonErrorHandler renders unhandled errors in the same envelope the portal
// handlers use.
func jsonErrorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		} else if logger != nil {
			logger.Error("unhandled error",
				zap.Error(err),
				zap.String("path", c.Request().URL.Path))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, map[string]any{"success": false, "error": message})
		}
		if writeErr != nil && logger != nil {
			logger.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}
