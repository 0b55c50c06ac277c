package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/campaign"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const maxMediaBytes = 16 << 20

// RecalculateQueue defers a recalculation to the worker.
type RecalculateQueue interface {
	EnqueueRecalculate(ctx context.Context, tenantID uuid.UUID) error
}

type CampaignHandler struct {
	svc    *campaign.Service
	engine *segmentation.Engine
	queue  RecalculateQueue
}

func NewCampaignHandler(svc *campaign.Service, engine *segmentation.Engine, queue RecalculateQueue) *CampaignHandler {
	return &CampaignHandler{svc: svc, engine: engine, queue: queue}
}

func (h *CampaignHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	days, err := h.engine.Threshold(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"dias_inatividade": days})
}

func (h *CampaignHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiasInatividade int `json:"dias_inatividade"`
	}
	if !decode(w, r, &req) {
		return
	}

	sum, err := h.engine.UpdateThreshold(r.Context(), tenant.FromContext(r.Context()), req.DiasInatividade)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Recalculate runs inline unless ?async=true, which hands the tenant to
// the worker and answers 202.
func (h *CampaignHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.IDFromContext(r.Context())

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.queue != nil {
		if err := h.queue.EnqueueRecalculate(r.Context(), tenantID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	sum, err := h.engine.Recalculate(r.Context(), tenantID, "manual")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *CampaignHandler) Segments(w http.ResponseWriter, r *http.Request) {
	counts, err := h.engine.Segments(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

type audienceRequest struct {
	Criterios       []string `json:"criterios"`
	DiasInatividade int      `json:"diasInatividade"`
}

func (a audienceRequest) parse() ([]campaign.Criterion, error) {
	criteria, err := campaign.ParseCriteria(a.Criterios)
	if err != nil {
		return nil, err
	}
	if len(criteria) == 0 {
		return nil, campaign.ErrNoCriteria
	}
	return criteria, nil
}

// Preview counts the audience. Zero criteria is not an error here: the
// answer is simply that nothing can be sent.
func (h *CampaignHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req audienceRequest
	if !decode(w, r, &req) {
		return
	}
	criteria, err := campaign.ParseCriteria(req.Criterios)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	p, err := h.svc.Preview(r.Context(), tenant.IDFromContext(r.Context()), criteria, req.DiasInatividade)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CampaignHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req campaign.Request
	if !decode(w, r, &req) {
		return
	}

	c, err := h.svc.Dispatch(r.Context(), tenant.FromContext(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"campaign":      c,
		"totalClientes": c.TotalClientes,
	})
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), tenant.IDFromContext(r.Context()), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": list, "count": len(list)})
}

func (h *CampaignHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaBytes)
	if err := r.ParseMultipartForm(maxMediaBytes); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	mt, url, err := h.svc.UploadMedia(r.Context(), tenant.IDFromContext(r.Context()), header.Filename, contentType, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"mediaType": mt, "mediaUrl": url})
}

// Export downloads the audience of ?criterios=a,b&dias=N as a spreadsheet.
func (h *CampaignHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := audienceRequest{DiasInatividade: queryInt(r, "dias", 0)}
	for _, c := range strings.Split(r.URL.Query().Get("criterios"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			req.Criterios = append(req.Criterios, c)
		}
	}
	criteria, err := req.parse()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	data, err := h.svc.ExportRecipients(r.Context(), tenant.IDFromContext(r.Context()), criteria, req.DiasInatividade)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	name := fmt.Sprintf("clientes-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
