package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/orchestrator"
	"github.com/shubhsaxena/stock-search-assistant/internal/query"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type Handler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		orchestrator: orch,
		logger:       logger,
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	req, err := h.parseSearchRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}
	req.RequestID = requestID

	resp, err := h.orchestrator.Execute(ctx, req)
	if err != nil {
		h.logger.Error("search failed",
			zap.String("request_id", requestID),
			zap.String("query", req.Query),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "search_error", "Search service temporarily unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

const maxParseQueryLen = 256

// Parse returns the structured interpretation of a query without running
// it against any backend. Useful for debugging routing decisions.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}
	if len(text) > maxParseQueryLen {
		text = text[:maxParseQueryLen]
	}

	spec := h.orchestrator.Parse(text)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":    text,
		"spec":     spec,
		"mode":     spec.Mode.String(),
		"compiled": query.Compile(spec),
	})
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "missing_symbol", "Query parameter 'symbol' is required")
		return
	}

	// ?agg=min|max&field=price answers historical questions instead of
	// returning the latest tick.
	if agg := r.URL.Query().Get("agg"); agg != "" {
		field := r.URL.Query().Get("field")
		if field == "" {
			field = "price"
		}
		value, err := h.orchestrator.AggregateQuote(ctx, symbol, field, agg)
		if err != nil {
			h.logger.Warn("aggregate quote failed",
				zap.String("symbol", symbol),
				zap.String("field", field),
				zap.String("agg", agg),
				zap.Error(err),
			)
			h.writeError(w, http.StatusBadRequest, "aggregate_failed", err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{
			"symbol": symbol,
			"field":  field,
			"agg":    agg,
			"value":  value,
		})
		return
	}

	quote, err := h.orchestrator.Quote(ctx, symbol)
	if err != nil {
		h.logger.Warn("quote lookup failed",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		h.writeError(w, http.StatusNotFound, "quote_unavailable", "No quote available for "+symbol)
		return
	}

	if fields := r.URL.Query().Get("fields"); fields != "" {
		h.writeJSON(w, http.StatusOK, projectQuote(quote, strings.Split(fields, ",")))
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

// projectQuote narrows a quote to the requested fields. The symbol is
// always included. Unknown field names are ignored.
func projectQuote(q *models.Quote, fields []string) map[string]any {
	out := map[string]any{"symbol": q.Symbol}
	for _, f := range fields {
		switch strings.TrimSpace(strings.ToLower(f)) {
		case "price":
			out["price"] = q.Price
		case "change":
			out["change"] = q.Change
		case "change_percent":
			out["change_percent"] = q.ChangePercent
		case "timestamp":
			out["timestamp"] = q.Timestamp
		}
	}
	return out
}

func (h *Handler) parseSearchRequest(r *http.Request) (*models.SearchRequest, error) {
	if r.Method == http.MethodPost {
		var req models.SearchRequest
		limited := io.LimitReader(r.Body, maxRequestBodySize)
		if err := json.NewDecoder(limited).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	// GET request
	req := &models.SearchRequest{
		Query: r.URL.Query().Get("q"),
	}

	if r.URL.Query().Get("force_fresh") == "true" {
		req.ForceFresh = true
	}

	return req, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("writing json response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
