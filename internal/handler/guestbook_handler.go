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

// GuestbookHandler は芳名帳のHTTPハンドラー。
// 書き込みと閲覧はゲスト（未ログイン）から、削除は招待状の所有者から行われる。
type GuestbookHandler struct {
	service InvitationServiceInterface
	metrics metrics.MetricsCollector
}

// NewGuestbookHandler はGuestbookHandlerを生成する。
func NewGuestbookHandler(service InvitationServiceInterface, collector metrics.MetricsCollector) *GuestbookHandler {
	return &GuestbookHandler{service: service, metrics: collector}
}

// guestbookEntryResponse は芳名帳書き込み1件のAPIレスポンス。
type guestbookEntryResponse struct {
	ID         string `json:"id"`
	AuthorName string `json:"authorName"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

func toGuestbookEntryResponse(e *model.GuestbookEntry) guestbookEntryResponse {
	return guestbookEntryResponse{
		ID:         e.ID,
		AuthorName: e.AuthorName,
		Body:       e.Body,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Add はゲストの芳名帳書き込みを受け付ける。認証不要。
// POST /api/invitations/{slug}/guestbook
func (h *GuestbookHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthorName string `json:"authorName"`
		Body       string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}

	entry, err := h.service.AddGuestbookEntry(r.Context(), chi.URLParam(r, "slug"), &invitation.GuestbookInput{
		AuthorName: req.AuthorName,
		Body:       req.Body,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordGuestbookEntry()
	writeJSON(w, http.StatusCreated, toGuestbookEntryResponse(entry))
}

// List は公開中の招待状の芳名帳一覧を返す。認証不要。
// GET /api/invitations/{slug}/guestbook
func (h *GuestbookHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListGuestbook(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]guestbookEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toGuestbookEntryResponse(&entries[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": items})
}

// Delete は所有者が芳名帳の書き込みを削除する。
// DELETE /api/my/invitations/{invitationID}/guestbook/{entryID}
func (h *GuestbookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteGuestbookEntry(
		r.Context(),
		userID,
		chi.URLParam(r, "invitationID"),
		chi.URLParam(r, "entryID"),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
