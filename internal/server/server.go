package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/debt-snowball/internal/coach"
	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/demo"
	"github.com/iwvelando/debt-snowball/internal/optimizer"
	"github.com/iwvelando/debt-snowball/internal/scenario"
	"github.com/iwvelando/debt-snowball/internal/store"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/output"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"github.com/iwvelando/debt-snowball/pkg/validation"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options wires the handler to its collaborators.
type Options struct {
	// Planner runs plan requests. Nil selects an uncached planner.
	Planner *scenario.Planner
	// Store backs /api/debtsets. Nil answers those routes with 503.
	Store         store.Repository
	MaxUploadSize int64
	Version       string
	// CurrencySymbol prefixes the outcome lines in plan responses.
	CurrencySymbol string
	// Now and Seed default to the wall clock.
	Now  func() time.Time
	Seed func() uint64
}

type handler struct {
	logger        *zap.Logger
	planner       *scenario.Planner
	store         store.Repository
	maxUploadSize int64
	version       string
	symbol        string
	now           func() time.Time
	seed          func() uint64
}

// NewHandler constructs the HTTP handler that serves the payoff planning API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{
		logger:        logger,
		planner:       opts.Planner,
		store:         opts.Store,
		maxUploadSize: opts.MaxUploadSize,
		version:       strings.TrimSpace(opts.Version),
		symbol:        opts.CurrencySymbol,
		now:           opts.Now,
		seed:          opts.Seed,
	}
	if h.planner == nil {
		h.planner = scenario.NewPlanner(logger, nil)
	}
	if h.maxUploadSize <= 0 {
		h.maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	if h.version == "" {
		h.version = "dev"
	}
	if h.symbol == "" {
		h.symbol = constants.DefaultCurrencySymbol
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.seed == nil {
		h.seed = func() uint64 { return uint64(time.Now().UnixNano()) }
	}

	mux := http.NewServeMux()

	// Plan a JSON debt set
	mux.HandleFunc("/api/plan", h.handlePlan)

	// Plan an uploaded YAML configuration
	mux.HandleFunc("/api/plan/upload", h.handlePlanUpload)

	// Snowball export document
	mux.HandleFunc("/api/export", h.handleExport)

	// Extra payment needed to be debt free by a target month
	mux.HandleFunc("/api/solve", h.handleSolve)

	// Portfolio summary and advisory notes
	mux.HandleFunc("/api/summary", h.handleSummary)

	// Random demo portfolio
	mux.HandleFunc("/api/demo", h.handleDemo)

	// Saved debt sets
	mux.HandleFunc("/api/debtsets", h.handleDebtSets)
	mux.HandleFunc("/api/debtsets/{name}", h.handleDebtSet)

	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

// planRequest is the JSON body accepted by /api/plan and /api/export. When
// DebtSet names a saved set, its debts and extra payment fill whatever the
// request leaves out. Debts without a rate get the default rate, as in the
// configuration file.
type planRequest struct {
	Debts         []config.DebtConfig `json:"debts"`
	DebtSet       string              `json:"debtSet,omitempty"`
	ExtraPayment  *float64            `json:"extraPayment,omitempty"`
	HorizonMonths int                 `json:"horizonMonths,omitempty"`
	Cascade       string              `json:"cascade,omitempty"`
	Strategies    []string            `json:"strategies,omitempty"`
}

type planResponse struct {
	Report   *scenario.Report `json:"report"`
	Outcomes []string         `json:"outcomes"`
	CSV      string           `json:"csv"`
	Warnings []string         `json:"warnings,omitempty"`
	Duration string           `json:"duration"`
	// ConfigYAML echoes an uploaded configuration.
	ConfigYAML string `json:"configYaml,omitempty"`
}

// solveRequest asks for the smallest extra payment that clears the debts
// within TargetMonths.
type solveRequest struct {
	planRequest
	TargetMonths int     `json:"targetMonths"`
	MaxExtra     float64 `json:"maxExtra,omitempty"`
}

type summaryResponse struct {
	Summary  debt.Summary `json:"summary"`
	Debts    []debt.Debt  `json:"debts"`
	Warnings []string     `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// statusError carries the HTTP status a request failure should be reported with.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &statusError{status: http.StatusBadRequest, err: err}
}

func (h *handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePlan"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	var payload planRequest
	if err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondFailure(w, err, op)
		return
	}

	req, err := h.resolve(r.Context(), payload)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	warnings := append(defaultRateWarnings(payload.Debts), validation.ValidateDebts(req.Debts)...)
	h.runPlan(r.Context(), w, req, warnings, h.symbol, nil, start, op)
}

func (h *handler) handlePlanUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePlanUpload"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}
	configBytes := buf.Bytes()

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := cfg.Validate(); err != nil {
		h.respondFailure(w, badRequest(fmt.Errorf("invalid configuration: %w", err)), op)
		return
	}
	strategies, err := cfg.StrategyList()
	if err != nil {
		h.respondFailure(w, badRequest(err), op)
		return
	}
	opts, err := cfg.PayoffOptions()
	if err != nil {
		h.respondFailure(w, badRequest(err), op)
		return
	}
	req := scenario.Request{
		Debts:      cfg.DebtRecords(),
		Strategies: strategies,
		Options:    opts,
	}

	h.runPlan(r.Context(), w, req, cfg.ValidateConfiguration(), cfg.CurrencySymbol(), configBytes, start, op)
}

func (h *handler) runPlan(ctx context.Context, w http.ResponseWriter, req scenario.Request, warnings []string, symbol string, configBytes []byte, start time.Time, op string) {
	report, err := h.planner.Plan(ctx, req)
	if err != nil {
		h.respondFailure(w, planFailure(err), op)
		return
	}

	csv, err := output.CsvString(report)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render csv: %v", err), op)
		return
	}

	outcomes := make([]string, 0, len(report.Scenarios))
	for _, sc := range report.Scenarios {
		outcomes = append(outcomes, sc.Result.Strategy.Label()+": "+output.Outcome(sc.Metrics, symbol))
	}

	elapsed := time.Since(start)
	response := planResponse{
		Report:     report,
		Outcomes:   outcomes,
		CSV:        csv,
		Warnings:   warnings,
		Duration:   elapsed.String(),
		ConfigYAML: string(configBytes),
	}

	h.logger.Info("plan request served",
		zap.String("op", op),
		zap.Int("debts", len(req.Debts)),
		zap.Int("scenarios", len(report.Scenarios)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = constants.ExportFormatJSON
	}
	if err := validation.ValidateExportFormat(format); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	var payload planRequest
	if err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	payload.Strategies = []string{string(payoff.Snowball)}

	req, err := h.resolve(r.Context(), payload)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	report, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		h.respondFailure(w, planFailure(err), op)
		return
	}
	doc, err := coach.FromReport(report, req.Debts, h.now())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	var buf bytes.Buffer
	if err := coach.Encode(&buf, doc, format); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	w.Header().Set("Content-Type", coach.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="debt-snowball.%s"`, format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write export", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSummary"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload planRequest
	if err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	req, err := h.resolve(r.Context(), payload)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	h.writeJSON(w, http.StatusOK, summaryResponse{
		Summary:  debt.Summarize(req.Debts),
		Debts:    debt.Annotate(req.Debts),
		Warnings: validation.ValidateDebts(req.Debts),
	})
}

func (h *handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSolve"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload solveRequest
	if err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	req, err := h.resolve(r.Context(), payload.planRequest)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	runner, err := optimizer.NewRunner(h.logger, req.Debts, req.Options)
	if err != nil {
		h.respondFailure(w, badRequest(err), op)
		return
	}
	summary, err := runner.Solve(payload.TargetMonths, payload.MaxExtra)
	if err != nil {
		h.respondFailure(w, badRequest(err), op)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleDemo(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDemo"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	seed := h.seed()
	if raw := query.Get("seed"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid seed %q", raw), op)
			return
		}
		seed = parsed
	}

	debts := demo.NewSeededGenerator(seed).Debts()
	h.logger.Debug("demo portfolio generated",
		zap.String("op", op),
		zap.Uint64("seed", seed),
		zap.Int("debts", len(debts)),
	)

	switch strings.ToLower(query.Get("format")) {
	case "", constants.ExportFormatJSON:
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"seed":  seed,
			"debts": debts,
		})
	case constants.ExportFormatYAML:
		var buf bytes.Buffer
		if err := config.FromDebts(debts, 0).Encode(&buf); err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		w.Header().Set("Content-Type", coach.ContentType(constants.ExportFormatYAML))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Error("failed to write demo config", zap.String("op", op), zap.Error(err))
		}
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid demo format %q: expected json or yaml", query.Get("format")), op)
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// resolve turns a JSON plan request into a planner request, filling debts and
// extra payment from a saved set when one is named.
func (h *handler) resolve(ctx context.Context, payload planRequest) (scenario.Request, error) {
	debts := debtRecords(payload.Debts)
	var extra float64
	if payload.ExtraPayment != nil {
		extra = *payload.ExtraPayment
	}

	if name := strings.TrimSpace(payload.DebtSet); name != "" {
		if h.store == nil {
			return scenario.Request{}, &statusError{status: http.StatusServiceUnavailable, err: store.ErrDisabled}
		}
		set, err := h.store.Get(ctx, name)
		if err != nil {
			return scenario.Request{}, storeFailure(err)
		}
		if len(debts) == 0 {
			debts = set.Debts
		}
		if payload.ExtraPayment == nil {
			extra = set.ExtraPayment
		}
	}

	debts = debt.WithDefaultIDs(debts)
	if err := debt.ValidateSet(debts); err != nil {
		return scenario.Request{}, badRequest(fmt.Errorf("invalid debts: %w", err))
	}

	cascade, err := payoff.ParseCascade(payload.Cascade)
	if err != nil {
		return scenario.Request{}, badRequest(err)
	}
	strategies := make([]payoff.Strategy, 0, len(payload.Strategies))
	for _, s := range payload.Strategies {
		parsed, err := payoff.ParseStrategy(s)
		if err != nil {
			return scenario.Request{}, badRequest(err)
		}
		strategies = append(strategies, parsed)
	}

	req := scenario.Request{
		Debts:      debts,
		Strategies: strategies,
		Options: payoff.Options{
			ExtraPayment:  extra,
			HorizonMonths: payload.HorizonMonths,
			Cascade:       cascade,
		},
	}
	if err := req.Options.Validate(); err != nil {
		return scenario.Request{}, badRequest(err)
	}
	return req, nil
}

// debtRecords converts request debts, applying the default rate where none
// was given.
func debtRecords(in []config.DebtConfig) []debt.Debt {
	if len(in) == 0 {
		return nil
	}
	out := make([]debt.Debt, len(in))
	for i, d := range in {
		out[i] = d.ToDebt(constants.DefaultAnnualRatePercent)
	}
	return out
}

func defaultRateWarnings(debts []config.DebtConfig) []string {
	var warnings []string
	for _, d := range debts {
		if d.Rate == nil {
			warnings = append(warnings, fmt.Sprintf("Debt '%s' has no rate; assuming %.2f%%", d.Name, constants.DefaultAnnualRatePercent))
		}
	}
	return warnings
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &statusError{
				status: http.StatusRequestEntityTooLarge,
				err:    fmt.Errorf("request body exceeds limit of %d bytes", h.maxUploadSize),
			}
		}
		return badRequest(fmt.Errorf("failed to decode request: %w", err))
	}
	return nil
}

func planFailure(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &statusError{status: http.StatusServiceUnavailable, err: err}
	}
	return badRequest(err)
}

func (h *handler) respondFailure(w http.ResponseWriter, err error, op string) {
	status := http.StatusInternalServerError
	var se *statusError
	if errors.As(err, &se) {
		status = se.status
	}
	h.respondErrorWithOp(w, status, err.Error(), op, errorDetails(err)...)
}

// errorDetails lists the individual problems behind a validation failure, or
// nothing when err is a single error.
func errorDetails(err error) []string {
	for err != nil {
		if errs := multierr.Errors(err); len(errs) > 1 {
			details := make([]string, 0, len(errs))
			for _, e := range errs {
				details = append(details, e.Error())
			}
			return details
		}
		err = errors.Unwrap(err)
	}
	return nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string, details ...string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
