package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wedding-letter/letter-api/internal/invitation"
	"github.com/wedding-letter/letter-api/internal/metrics"
	"github.com/wedding-letter/letter-api/internal/model"
)

// RSVPHandler は出欠回答のHTTPハンドラー。
// 登録はゲスト（未ログイン）から、閲覧は招待状の所有者から行われる。
type RSVPHandler struct {
	service InvitationServiceInterface
	metrics metrics.MetricsCollector
}

// NewRSVPHandler はRSVPHandlerを生成する。
func NewRSVPHandler(service InvitationServiceInterface, collector metrics.MetricsCollector) *RSVPHandler {
	return &RSVPHandler{service: service, metrics: collector}
}

// rsvpResponse は出欠回答1件のAPIレスポンス。
type rsvpResponse struct {
	ID        string `json:"id"`
	GuestName string `json:"guestName"`
	Attending bool   `json:"attending"`
	Headcount int    `json:"headcount"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

func toRSVPResponse(r *model.RSVP) rsvpResponse {
	return rsvpResponse{
		ID:        r.ID,
		GuestName: r.GuestName,
		Attending: r.Attending,
		Headcount: r.Headcount,
		Message:   r.Message,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Submit はゲストの出欠回答を受け付ける。認証不要。
// POST /api/invitations/{slug}/rsvps
func (h *RSVPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GuestName string `json:"guestName"`
		Attending bool   `json:"attending"`
		Headcount int    `json:"headcount"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}

	rsvp, err := h.service.SubmitRSVP(r.Context(), chi.URLParam(r, "slug"), &invitation.RSVPInput{
		GuestName: req.GuestName,
		Attending: req.Attending,
		Headcount: req.Headcount,
		Message:   req.Message,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordRSVPSubmitted(rsvp.Attending)
	writeJSON(w, http.StatusCreated, toRSVPResponse(rsvp))
}

// ListMine は所有者向けに出欠回答一覧を返す。
// GET /api/my/invitations/{invitationID}/rsvps
func (h *RSVPHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	rsvps, err := h.service.ListRSVPs(r.Context(), userID, chi.URLParam(r, "invitationID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]rsvpResponse, 0, len(rsvps))
	for i := range rsvps {
		items = append(items, toRSVPResponse(&rsvps[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rsvps": items})
}
