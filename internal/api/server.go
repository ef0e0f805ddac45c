package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/pipeline/loader"
	"github.com/mavryk-network/activity-history/internal/pipeline/retry"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var accountPrefixes = []string{"tz1", "tz2", "tz3", "tz4", "KT1", "mv1", "mv2", "mv3", "mv4"}

// PageLoader loads one history page.
type PageLoader interface {
	Supports(chainID model.ChainID) bool
	LoadPage(ctx context.Context, req loader.PageRequest) (loader.Page, error)
}

// Server exposes the history feed over HTTP.
type Server struct {
	loader      PageLoader
	chains      map[string]model.KnownChain
	limiter     *ClientRateLimiter
	pageSize    int
	maxPageSize int
	logger      *slog.Logger
}

type ServerOption func(*Server)

// WithClientRateLimiter wraps the history endpoint with a per-client limiter.
func WithClientRateLimiter(rl *ClientRateLimiter) ServerOption {
	return func(s *Server) { s.limiter = rl }
}

// WithPageSize sets the default and maximum page sizes.
func WithPageSize(pageSize, maxSize int) ServerOption {
	return func(s *Server) {
		if pageSize > 0 {
			s.pageSize = pageSize
		}
		if maxSize >= s.pageSize {
			s.maxPageSize = maxSize
		}
	}
}

// NewServer creates the API server. Chains are addressable by id or name.
func NewServer(pageLoader PageLoader, chains []model.KnownChain, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		loader:      pageLoader,
		chains:      make(map[string]model.KnownChain, len(chains)*2),
		pageSize:    defaultPageSize,
		maxPageSize: maxPageSize,
		logger:      logger.With("component", "api"),
	}
	for _, c := range chains {
		s.chains[c.ID.String()] = c
		if c.Name != "" {
			s.chains[c.Name] = c
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	var history http.Handler = http.HandlerFunc(s.handleHistory)
	if s.limiter != nil {
		history = s.limiter.Wrap(history)
	}
	mux.Handle("GET /v1/history", history)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type errorResponse struct {
	Error     string `json:"error"`
	Transient bool   `json:"transient,omitempty"`
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type historyQuery struct {
	chain     model.KnownChain
	account   string
	asset     string
	scope     model.AssetScope
	limit     int
	cursor    *model.Cursor
	allowZero bool
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q, status, err := s.parseHistoryQuery(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	if !s.loader.Supports(q.chain.ID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("chain %s is not supported", q.chain.ID))
		return
	}

	page, err := s.loader.LoadPage(r.Context(), loader.PageRequest{
		ChainID:     q.chain.ID,
		Account:     q.account,
		Scope:       q.scope,
		PseudoLimit: q.limit,
		Cursor:      q.cursor,
	})
	if err != nil {
		if errors.Is(err, chain.ErrUnsupportedChain) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("chain %s is not supported", q.chain.ID))
			return
		}
		decision := retry.Classify(err)
		s.logger.Error("history page load failed",
			"chain", q.chain.ID,
			"account", q.account,
			"scope", q.scope.Kind,
			"error", err,
			"reason", decision.Reason,
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:     "upstream indexer request failed",
			Transient: decision.IsTransient(),
		})
		return
	}

	resp := historyResponse{
		Chain:         q.chain.ID.String(),
		Account:       q.account,
		Asset:         q.asset,
		Items:         make([]historyItemResponse, 0, len(page.Items)),
		NextCursor:    toCursorResponse(page.Cursor),
		ReachedTheEnd: page.Groups == 0,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, toHistoryItemResponse(item, q.allowZero))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parseHistoryQuery(r *http.Request) (historyQuery, int, error) {
	values := r.URL.Query()
	var q historyQuery

	chainKey := strings.TrimSpace(values.Get("chain"))
	if chainKey == "" {
		return q, http.StatusBadRequest, errors.New("chain query param required")
	}
	known, ok := s.chains[chainKey]
	if !ok {
		return q, http.StatusNotFound, fmt.Errorf("chain %s is not supported", chainKey)
	}
	q.chain = known

	q.account = strings.TrimSpace(values.Get("account"))
	if !validAccount(q.account) {
		return q, http.StatusBadRequest, errors.New("invalid account address")
	}

	q.asset = strings.TrimSpace(values.Get("asset"))
	scope, err := model.ParseAssetSlug(q.asset, known.LiquidityContract)
	if err != nil {
		return q, http.StatusBadRequest, err
	}
	q.scope = scope

	q.limit = s.pageSize
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > s.maxPageSize {
			return q, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and %d", s.maxPageSize)
		}
		q.limit = n
	}

	cursor, err := parseCursor(values.Get("cursor_level"), values.Get("cursor_timestamp"), values.Get("cursor_hash"))
	if err != nil {
		return q, http.StatusBadRequest, err
	}
	q.cursor = cursor

	if raw := values.Get("allow_zero"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, http.StatusBadRequest, errors.New("allow_zero must be a boolean")
		}
		q.allowZero = b
	}
	return q, http.StatusOK, nil
}

func parseCursor(level, timestamp, hash string) (*model.Cursor, error) {
	if level == "" && timestamp == "" && hash == "" {
		return nil, nil
	}
	var c model.Cursor
	if level != "" {
		n, err := strconv.ParseInt(level, 10, 64)
		if err != nil || n <= 0 {
			return nil, errors.New("cursor_level must be a positive integer")
		}
		c.Level = n
	}
	if timestamp != "" {
		ts, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, errors.New("cursor_timestamp must be RFC 3339")
		}
		c.Timestamp = ts.UTC()
	}
	if c.Level == 0 && c.Timestamp.IsZero() {
		return nil, errors.New("cursor requires cursor_level or cursor_timestamp")
	}
	c.Hash = hash
	return &c, nil
}

func validAccount(address string) bool {
	if len(address) != 36 {
		return false
	}
	for _, p := range accountPrefixes {
		if strings.HasPrefix(address, p) {
			return true
		}
	}
	return false
}
