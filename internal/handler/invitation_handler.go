package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wedding-letter/letter-api/internal/invitation"
	"github.com/wedding-letter/letter-api/internal/metrics"
	"github.com/wedding-letter/letter-api/internal/middleware"
	"github.com/wedding-letter/letter-api/internal/model"
)

// InvitationServiceInterface は招待状ハンドラーが必要とするサービスインターフェース。
type InvitationServiceInterface interface {
	Create(ctx context.Context, ownerID string, input *invitation.Input) (*model.Invitation, error)
	ListMine(ctx context.Context, ownerID string) ([]model.Invitation, error)
	GetMine(ctx context.Context, ownerID, id string) (*model.Invitation, error)
	Update(ctx context.Context, ownerID, id string, input *invitation.Input) (*model.Invitation, error)
	Delete(ctx context.Context, ownerID, id string) error
	PublicBySlug(ctx context.Context, slug string) (*model.Invitation, error)
	SubmitRSVP(ctx context.Context, slug string, input *invitation.RSVPInput) (*model.RSVP, error)
	ListRSVPs(ctx context.Context, ownerID, invitationID string) ([]model.RSVP, error)
	AddGuestbookEntry(ctx context.Context, slug string, input *invitation.GuestbookInput) (*model.GuestbookEntry, error)
	ListGuestbook(ctx context.Context, slug string) ([]model.GuestbookEntry, error)
	DeleteGuestbookEntry(ctx context.Context, ownerID, invitationID, entryID string) error
}

// PreviewFetcherInterface は会場リンクプレビューの取得インターフェース。
type PreviewFetcherInterface interface {
	Fetch(ctx context.Context, rawURL string) (*model.LinkPreview, error)
}

// InvitationHandler は招待状関連のHTTPハンドラー。
type InvitationHandler struct {
	service InvitationServiceInterface
	preview PreviewFetcherInterface
	metrics metrics.MetricsCollector
}

// NewInvitationHandler はInvitationHandlerを生成する。
func NewInvitationHandler(
	service InvitationServiceInterface,
	preview PreviewFetcherInterface,
	collector metrics.MetricsCollector,
) *InvitationHandler {
	return &InvitationHandler{service: service, preview: preview, metrics: collector}
}

// invitationRequest は招待状作成・更新のリクエストボディ。
type invitationRequest struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	GroomName    string `json:"groomName"`
	BrideName    string `json:"brideName"`
	CeremonyAt   string `json:"ceremonyAt"`
	VenueName    string `json:"venueName"`
	VenueAddress string `json:"venueAddress"`
	VenueURL     string `json:"venueUrl"`
	Message      string `json:"message"`
	IsPublished  bool   `json:"isPublished"`
}

func (req *invitationRequest) toInput() (*invitation.Input, error) {
	var ceremonyAt time.Time
	if req.CeremonyAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CeremonyAt)
		if err != nil {
			return nil, model.NewInvalidRequestError("挙式日時の形式が正しくありません。")
		}
		ceremonyAt = parsed
	}

	return &invitation.Input{
		Slug:         req.Slug,
		Title:        req.Title,
		GroomName:    req.GroomName,
		BrideName:    req.BrideName,
		CeremonyAt:   ceremonyAt,
		VenueName:    req.VenueName,
		VenueAddress: req.VenueAddress,
		VenueURL:     req.VenueURL,
		Message:      req.Message,
		IsPublished:  req.IsPublished,
	}, nil
}

// invitationResponse は招待状1件のAPIレスポンス。
type invitationResponse struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	GroomName    string `json:"groomName"`
	BrideName    string `json:"brideName"`
	CeremonyAt   string `json:"ceremonyAt"`
	VenueName    string `json:"venueName"`
	VenueAddress string `json:"venueAddress"`
	VenueURL     string `json:"venueUrl"`
	Message      string `json:"message"`
	IsPublished  bool   `json:"isPublished"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toInvitationResponse(inv *model.Invitation) invitationResponse {
	return invitationResponse{
		ID:           inv.ID,
		Slug:         inv.Slug,
		Title:        inv.Title,
		GroomName:    inv.GroomName,
		BrideName:    inv.BrideName,
		CeremonyAt:   inv.CeremonyAt.UTC().Format(time.RFC3339),
		VenueName:    inv.VenueName,
		VenueAddress: inv.VenueAddress,
		VenueURL:     inv.VenueURL,
		Message:      inv.Message,
		IsPublished:  inv.IsPublished,
		CreatedAt:    inv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    inv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ownerID はコンテキストから認証済みユーザーIDを取り出す。
// 認証ミドルウェアの内側でのみ呼ばれる前提。
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewAuthRequiredError())
		return "", false
	}
	return userID, true
}

// Create は新規招待状を作成する。
// POST /api/my/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req invitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}
	input, err := req.toInput()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	inv, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

// ListMine は自分の招待状一覧を返す。
// GET /api/my/invitations
func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	invitations, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]invitationResponse, 0, len(invitations))
	for i := range invitations {
		items = append(items, toInvitationResponse(&invitations[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": items})
}

// GetMine は自分の招待状を1件返す。
// GET /api/my/invitations/{invitationID}
func (h *InvitationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetMine(r.Context(), userID, chi.URLParam(r, "invitationID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

// Update は自分の招待状を上書き更新する。
// PUT /api/my/invitations/{invitationID}
func (h *InvitationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req invitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}
	input, err := req.toInput()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	inv, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "invitationID"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

// Delete は自分の招待状を削除する。
// DELETE /api/my/invitations/{invitationID}
func (h *InvitationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "invitationID")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublicBySlug は公開中の招待状をスラッグで返す。未ログインでも閲覧できる。
// GET /api/invitations/{slug}
func (h *InvitationHandler) PublicBySlug(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.PublicBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

// previewResponse は会場リンクプレビューのAPIレスポンス。
type previewResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// VenuePreview は会場URLのOGメタデータを取得して返す。
// 内部ネットワーク宛のURLはSSRFガードによりブロックされる。
// GET /api/my/invitations/{invitationID}/venue-preview
func (h *InvitationHandler) VenuePreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetMine(r.Context(), userID, chi.URLParam(r, "invitationID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if inv.VenueURL == "" {
		handleServiceError(w, model.NewInvalidRequestError("会場URLが設定されていません。"))
		return
	}

	preview, err := h.preview.Fetch(r.Context(), inv.VenueURL)
	if err != nil {
		var apiErr *model.APIError
		blocked := errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeLinkBlocked
		h.metrics.RecordLinkPreview(blocked)
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordLinkPreview(false)

	writeJSON(w, http.StatusOK, previewResponse{
		URL:         preview.URL,
		Title:       preview.Title,
		Description: preview.Description,
		ImageURL:    preview.ImageURL,
	})
}
