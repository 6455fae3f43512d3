package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muxin-dev/SoulPulse/internal/bootstrap"
	"github.com/muxin-dev/SoulPulse/internal/metrics"
)

// Server 本地 HTTP 服务：JSON API + SSE + Prometheus，
// 可选挂载静态仪表盘目录。
type Server struct {
	rt      *bootstrap.AgentRuntime
	ln      net.Listener
	srv     *http.Server
	baseURL string
}

// Options 启动选项
type Options struct {
	ListenAddr string // 如 "127.0.0.1:8417"
	StaticDir  string // 静态仪表盘目录，空则不挂载
}

// Start 启动本地 HTTP 服务
func Start(ctx context.Context, rt *bootstrap.AgentRuntime, opts Options) (*Server, error) {
	if rt == nil {
		return nil, fmt.Errorf("rt 不能为空")
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:8417"
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	baseURL := "http://127.0.0.1:" + portStr

	api := newAPI(rt)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)

	r.Get("/health", api.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", api.handleSSE)
		r.Get("/analytics", api.getAnalytics)
		r.Get("/sessions", api.getSessionsByDate)
		r.Get("/sessions/recent", api.getRecentSessions)
		r.Get("/progress", api.getProgress)
		r.Get("/status", api.getStatus)
		r.Get("/diagnostics", api.getDiagnostics)
		r.Post("/sync", api.triggerSync)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/weekly", api.getWeeklyReport)
			r.Get("/monthly", api.getMonthlyReport)
			r.Get("/history", api.getReportHistory)
		})
		r.Get("/insights/search", api.searchInsights)
	})

	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		mountStatic(r, dir)
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s := &Server{rt: rt, ln: ln, srv: srv, baseURL: baseURL}

	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server 异常退出", "error", err)
		}
	}()

	slog.Info("本地 HTTP 已启动", "base_url", baseURL)
	return s, nil
}

// BaseURL 实际监听地址
func (s *Server) BaseURL() string {
	if s == nil {
		return ""
	}
	return s.baseURL
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// mountStatic 挂载静态仪表盘目录；未知路径回退 index.html（SPA 路由）
func mountStatic(r chi.Router, dir string) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		slog.Warn("静态目录缺少 index.html，跳过挂载", "dir", dir)
		return
	}

	fileServer := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		clean := filepath.Clean(strings.TrimPrefix(req.URL.Path, "/"))
		if clean == "." || strings.Contains(clean, "..") {
			http.ServeFile(w, req, index)
			return
		}
		if _, err := os.Stat(filepath.Join(dir, clean)); err != nil {
			http.ServeFile(w, req, index)
			return
		}
		fileServer.ServeHTTP(w, req)
	})
	slog.Info("静态仪表盘已挂载", "dir", dir)
}

// requestMetrics 按路由模板与状态码计数 HTTP 请求
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(ww.Status())).Inc()
	})
}

// ========== JSON helpers ==========

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
