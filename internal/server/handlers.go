package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/blocks"
	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/results"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeQueryNotFound  = "QUERY_NOT_FOUND"
	CodeQueryFailed    = "QUERY_FAILED"
	CodeWriteDisabled  = "WRITE_DISABLED"
	CodeWriteFailed    = "WRITE_FAILED"
)

const maxBodyBytes = 1 << 20

// Response is the JSON envelope for every API reply.
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// QueryRequest runs either a saved query by name or an inline condition
// list.
type QueryRequest struct {
	Name       string                `json:"name,omitempty"`
	Return     string                `json:"return" validate:"required_without=Name"`
	Conditions condition.List        `json:"conditions"`
	Selections []condition.Selection `json:"selections,omitempty" validate:"dive"`
	Settings   results.Settings      `json:"settings"`
}

// QueryResponse is one page of processed rows.
type QueryResponse struct {
	Program  string        `json:"program"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	Rows     []results.Row `json:"rows"`
}

// CompileRequest asks for the program text without running it.
type CompileRequest struct {
	Return     string                `json:"return" validate:"required"`
	Conditions condition.List        `json:"conditions"`
	Selections []condition.Selection `json:"selections,omitempty" validate:"dive"`
}

// TranslatorInfo describes one registered relation label.
type TranslatorInfo struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	IsVariable  bool     `json:"isVariable"`
	Options     []string `json:"options,omitempty"`
}

// BlocksRequest converts relation triples into pages and optionally writes
// them.
type BlocksRequest struct {
	Triples []vocab.Triple `json:"triples" validate:"required,min=1"`
	Write   bool           `json:"write,omitempty"`
}

// BlocksResponse holds the compiled pages and, after a write, the report.
type BlocksResponse struct {
	Pages  []blocks.Page        `json:"pages"`
	Report *factstore.TxReport `json:"report,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{OK: true, Data: map[string]string{"status": "healthy"}})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}

	returnVar, conditions, selections, settings := req.Return, req.Conditions, req.Selections, req.Settings
	if req.Name != "" {
		saved, ok := s.saved[req.Name]
		if !ok || saved == nil {
			s.fail(w, http.StatusNotFound, CodeQueryNotFound, fmt.Sprintf("no saved query named %q", req.Name), nil)
			return
		}
		returnVar, conditions, selections = saved.Return, saved.Conditions, saved.Selections
		settings = overlaySettings(saved.Settings, req.Settings)
	}
	if settings.PageSize == 0 {
		settings.PageSize = s.pageSize
	}
	if err := condition.Validate(conditions); err != nil {
		s.fail(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}

	start := time.Now()
	rows, err := s.executor.Execute(r.Context(), conditions, returnVar, selections)
	s.metrics.queryDuration.Observe(time.Since(start).Seconds())

	var qerr *query.QueryError
	if errors.As(err, &qerr) {
		s.metrics.queries.WithLabelValues("failed").Inc()
		s.fail(w, http.StatusUnprocessableEntity, CodeQueryFailed, qerr.Err.Error(), map[string]string{"program": qerr.Program})
		return
	}
	if err != nil {
		s.metrics.queries.WithLabelValues("failed").Inc()
		s.fail(w, http.StatusInternalServerError, CodeQueryFailed, err.Error(), nil)
		return
	}
	s.metrics.queries.WithLabelValues("ok").Inc()
	s.metrics.queryRows.Observe(float64(len(rows)))

	out := results.Process(rows, settings)
	writeJSON(w, http.StatusOK, Response{OK: true, Data: QueryResponse{
		Program:  s.executor.Program(conditions, returnVar, selections).String(),
		Total:    len(out.All),
		Page:     settings.Page,
		PageSize: settings.PageSize,
		Rows:     out.Page,
	}})
}

// overlaySettings applies the paging and search fields of req on top of a
// saved query's settings.
func overlaySettings(saved, req results.Settings) results.Settings {
	out := saved
	if req.Page > 0 {
		out.Page = req.Page
	}
	if req.PageSize > 0 {
		out.PageSize = req.PageSize
	}
	if req.Search != "" {
		out.Search = req.Search
	}
	return out
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := condition.Validate(req.Conditions); err != nil {
		s.fail(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	q := s.executor.Program(req.Conditions, req.Return, req.Selections)
	writeJSON(w, http.StatusOK, Response{OK: true, Data: map[string]interface{}{
		"program": q.String(),
		"clauses": len(q.Where),
	}})
}

func (s *Server) handleTranslators(w http.ResponseWriter, r *http.Request) {
	withOptions := r.URL.Query().Get("options") == "true"
	reg := s.executor.Registry()

	labels := reg.Labels()
	out := make([]TranslatorInfo, 0, len(labels))
	for _, label := range labels {
		t, _, ok := reg.Lookup(label)
		if !ok {
			continue
		}
		info := TranslatorInfo{
			Label:       label,
			Description: t.Description,
			Placeholder: t.Placeholder,
			IsVariable:  t.IsVariable,
		}
		if withOptions && t.TargetOptions != nil {
			info.Options = t.TargetOptions()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, Response{OK: true, Data: out})
}

func (s *Server) handleSavedQueries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{OK: true, Data: s.saved})
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	var req BlocksRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i, t := range req.Triples {
		if strings.TrimSpace(t.Source) == "" || strings.TrimSpace(t.Relation) == "" || strings.TrimSpace(t.Target) == "" {
			s.fail(w, http.StatusBadRequest, CodeInvalidRequest, fmt.Sprintf("triple %d: source, relation and target are required", i+1), nil)
			return
		}
	}

	resp := BlocksResponse{Pages: s.blocks.ToPages(req.Triples)}
	if req.Write {
		if s.store == nil {
			s.fail(w, http.StatusForbidden, CodeWriteDisabled, "this server is read-only", nil)
			return
		}
		report, err := s.store.Append(r.Context(), blocks.ToFactPages(resp.Pages))
		if err != nil {
			s.fail(w, http.StatusInternalServerError, CodeWriteFailed, err.Error(), nil)
			return
		}
		s.metrics.blocksWritten.Add(float64(report.Blocks))
		resp.Report = &report
	}
	writeJSON(w, http.StatusOK, Response{OK: true, Data: resp})
}

// decode reads a JSON body into dst and validates it, writing the error
// response itself when either step fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.fail(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}
			s.fail(w, http.StatusBadRequest, CodeInvalidRequest, "request failed validation", fields)
			return false
		}
		s.fail(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, status int, code, message string, details interface{}) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", code), zap.String("message", message))
	}
	writeJSON(w, status, Response{Error: &ErrorInfo{Code: code, Message: message, Details: details}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
