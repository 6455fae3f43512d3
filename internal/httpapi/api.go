package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/muxin-dev/SoulPulse/internal/bootstrap"
	"github.com/muxin-dev/SoulPulse/internal/dto"
	"github.com/muxin-dev/SoulPulse/internal/observability"
	"github.com/muxin-dev/SoulPulse/internal/pkg/buildinfo"
	"github.com/muxin-dev/SoulPulse/internal/schema"
	"github.com/muxin-dev/SoulPulse/internal/service"
)

type apiServer struct {
	rt        *bootstrap.AgentRuntime
	startTime time.Time
}

func newAPI(rt *bootstrap.AgentRuntime) *apiServer {
	return &apiServer{rt: rt, startTime: time.Now()}
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       a.rt.Cfg.App.Name,
		"version":    buildinfo.Version,
		"started_at": a.startTime.Format(time.RFC3339),
	})
}

// ========== analytics ==========

func (a *apiServer) getAnalytics(w http.ResponseWriter, r *http.Request) {
	timeRange, err := service.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	snapshot, err := a.rt.Services.Analytics.GetSnapshot(ctx, timeRange)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// ========== sessions ==========

func (a *apiServer) getSessionsByDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := a.rt.Repos.Record.GetByDate(ctx, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(records))
}

func (a *apiServer) getRecentSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := a.rt.Repos.Record.GetRecent(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(records))
}

func toSessionDTOs(records []schema.SessionRecord) []dto.SessionDTO {
	out := make([]dto.SessionDTO, 0, len(records))
	for i := range records {
		rec := &records[i]
		out = append(out, dto.SessionDTO{
			ID:                 rec.ID,
			RemoteID:           rec.RemoteID,
			Date:               time.UnixMilli(rec.CreatedAt).Format("2006-01-02"),
			CreatedAt:          rec.CreatedAt,
			TimeRange:          service.FormatTimeRangeMs(rec.StartedAt, rec.CompletedAt),
			Status:             rec.Status,
			ServiceLabel:       rec.ServiceLabel(),
			DurationMinutes:    rec.DurationMinutes,
			EffectivenessScore: rec.EffectivenessScore,
			FeedbackRating:     rec.FeedbackRating,
			Advisor:            schema.GetString(rec.Metadata, "advisor"),
			Channel:            schema.GetString(rec.Metadata, "channel"),
			Metadata:           rec.Metadata,
		})
	}
	return out
}

// ========== progress ==========

func (a *apiServer) getProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := a.rt.Repos.Progress.Get(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "成长摘要尚未同步")
		return
	}

	writeJSON(w, http.StatusOK, &dto.ProgressDTO{
		GrowthRatePercent: summary.GrowthRatePercent,
		Stage:             summary.Stage,
		TotalSessions:     summary.TotalSessions,
		TotalMinutes:      summary.TotalMinutes,
		FetchedAt:         summary.FetchedAt.UnixMilli(),
		Raw:               summary.Raw,
	})
}

// ========== status / diagnostics / sync ==========

func (a *apiServer) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := observability.BuildStatus(ctx, a.rt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *apiServer) getDiagnostics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	diag, err := observability.BuildDiagnostics(ctx, a.rt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

func (a *apiServer) triggerSync(w http.ResponseWriter, r *http.Request) {
	if a.rt.DB != nil && a.rt.DB.SafeMode {
		writeError(w, http.StatusServiceUnavailable, "数据库处于安全模式，同步不可用")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result, err := a.rt.Services.Sync.SyncOnce(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ========== reports ==========

func (a *apiServer) getWeeklyReport(w http.ResponseWriter, r *http.Request) {
	a.getPeriodReport(w, r, a.rt.Services.Reports.GetWeeklyReport)
}

func (a *apiServer) getMonthlyReport(w http.ResponseWriter, r *http.Request) {
	a.getPeriodReport(w, r, a.rt.Services.Reports.GetMonthlyReport)
}

func (a *apiServer) getPeriodReport(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) (*schema.PeriodReport, error)) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	report, err := fetch(ctx, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

func (a *apiServer) getReportHistory(w http.ResponseWriter, r *http.Request) {
	periodType := strings.TrimSpace(r.URL.Query().Get("type"))
	if periodType == "" {
		periodType = service.PeriodWeek
	}
	limit := 12
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	reports, err := a.rt.Services.Reports.History(ctx, periodType, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]*dto.ReportDTO, 0, len(reports))
	for i := range reports {
		out = append(out, toReportDTO(&reports[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func toReportDTO(report *schema.PeriodReport) *dto.ReportDTO {
	if report == nil {
		return nil
	}
	return &dto.ReportDTO{
		PeriodType:           report.PeriodType,
		StartDate:            report.StartDate,
		EndDate:              report.EndDate,
		TotalSessions:        report.TotalSessions,
		CompletedSessions:    report.CompletedSessions,
		TotalMinutes:         report.TotalMinutes,
		AverageEffectiveness: report.AverageEffectiveness,
		BestStreak:           report.BestStreak,
		Consistency:          report.Consistency,
		TopServices:          report.TopServices,
		Overview:             report.Overview,
		UpdatedAt:            report.UpdatedAt.UnixMilli(),
	}
}

// ========== insights ==========

func (a *apiServer) searchInsights(w http.ResponseWriter, r *http.Request) {
	if !a.rt.Services.Memory.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "洞察记忆未启用")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q 不能为空")
		return
	}
	topK := 5
	if s := strings.TrimSpace(r.URL.Query().Get("k")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			topK = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results, err := a.rt.Services.Memory.Query(ctx, query, topK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]dto.MemoryResultDTO, 0, len(results))
	for _, m := range results {
		out = append(out, dto.MemoryResultDTO{
			Content:    m.Content,
			Similarity: m.Similarity,
			Period:     m.Period,
			StartDate:  m.StartDate,
			EndDate:    m.EndDate,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ========== SSE ==========

func (a *apiServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sub := a.rt.Hub.Subscribe(ctx, 32)

	_, _ = io.WriteString(w, "event: ready\n")
	_, _ = io.WriteString(w, "data: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, "event: ping\n")
			_, _ = io.WriteString(w, "data: {}\n\n")
			flusher.Flush()
		case evt, ok := <-sub:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt)
			_, _ = io.WriteString(w, "event: "+sanitizeSSEName(evt.Type)+"\n")
			_, _ = io.WriteString(w, "data: ")
			_, _ = w.Write(b)
			_, _ = io.WriteString(w, "\n\n")
			flusher.Flush()
		}
	}
}

func sanitizeSSEName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "message"
	}
	n = strings.ReplaceAll(n, "\n", "")
	n = strings.ReplaceAll(n, "\r", "")
	return n
}
