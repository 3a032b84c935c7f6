// api/handler.go
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sinspired/ipquery/internal/command"
	"github.com/sinspired/ipquery/internal/resolver"
	"github.com/sinspired/ipquery/pkg/ipinfo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxMessageBytes 消息体上限
const maxMessageBytes = 4 << 10

type lookupService interface {
	Resolve(ctx context.Context, ip string) (ipinfo.LookupResult, error)
	Status() resolver.Status
}

type messageProcessor interface {
	Process(ctx context.Context, text string) []string
}

type Handler struct {
	Resolver  lookupService
	Processor messageProcessor
	// Gatherer 为 nil 时不注册 /metrics
	Gatherer prometheus.Gatherer

	once   sync.Once
	router *mux.Router
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Replies []string `json:"replies"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router 注册全部路由
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/lookup/{ip}", h.handleLookup).Methods(http.MethodGet)
	r.HandleFunc("/api/lookup", h.handleLookup).Methods(http.MethodGet)
	r.HandleFunc("/api/message", h.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/status", h.handleStatus).Methods(http.MethodGet)
	if h.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() { h.router = h.Router() })
	h.router.ServeHTTP(w, r)
}

// /api/lookup/{ip} 或 /api/lookup?ip=x.x.x.x
func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	targetIP := mux.Vars(r)["ip"]
	if targetIP == "" {
		targetIP = r.URL.Query().Get("ip")
	}
	if targetIP == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing ip parameter"})
		return
	}

	// 验证 IP 格式，不合法时不发起任何查询
	if !ipinfo.ValidateIP(targetIP) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid IP address"})
		return
	}

	res, err := h.Resolver.Resolve(r.Context(), targetIP)
	if err != nil {
		if errors.Is(err, ipinfo.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid IP address"})
			return
		}
		// 具体原因只写日志
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: command.ReplyLookupFailed})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "read body failed"})
		return
	}
	if len(body) > maxMessageBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "message too large"})
		return
	}

	var req messageRequest
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid message"})
		return
	}

	replies := h.Processor.Process(r.Context(), req.Text)
	if replies == nil {
		replies = []string{}
	}
	writeJSON(w, http.StatusOK, messageResponse{Replies: replies})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Resolver.Status())
}

// writeJSON 先完整编码再写状态码，编码失败时返回 500
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error(fmt.Sprintf("编码响应失败: %v", err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
