package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wedding-letter/letter-api/internal/metrics"
	"github.com/wedding-letter/letter-api/internal/model"
	"github.com/wedding-letter/letter-api/internal/notice"
)

// NoticeServiceInterface はお知らせハンドラーが必要とするサービスインターフェース。
type NoticeServiceInterface interface {
	PublicList(ctx context.Context, page, size int) (*notice.Page, error)
	PublicGet(ctx context.Context, id string) (*model.Notice, error)
	Banners(ctx context.Context) ([]model.Notice, error)
	Search(ctx context.Context, filter *model.NoticeSearchFilter) (*notice.Page, error)
	Create(ctx context.Context, input *notice.CreateInput) (*model.Notice, error)
	Update(ctx context.Context, id string, input *notice.UpdateInput) (*model.Notice, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Notice, error)
}

// NoticeHandler は公開側のお知らせHTTPハンドラー。
type NoticeHandler struct {
	service NoticeServiceInterface
	metrics metrics.MetricsCollector
}

// NewNoticeHandler はNoticeHandlerを生成する。
func NewNoticeHandler(service NoticeServiceInterface, collector metrics.MetricsCollector) *NoticeHandler {
	return &NoticeHandler{service: service, metrics: collector}
}

// noticeResponse はお知らせ1件のAPIレスポンス。
type noticeResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Status    string  `json:"status"`
	IsBanner  bool    `json:"isBanner"`
	StartAt   string  `json:"startAt"`
	EndAt     *string `json:"endAt,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// noticePageResponse はページネーション付き一覧のAPIレスポンス。
type noticePageResponse struct {
	Notices    []noticeResponse `json:"notices"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	TotalCount int64            `json:"totalCount"`
	IsLast     bool             `json:"isLast"`
}

func toNoticeResponse(n *model.Notice) noticeResponse {
	resp := noticeResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Status:    string(n.Status),
		IsBanner:  n.IsBanner,
		StartAt:   n.StartAt.UTC().Format(time.RFC3339),
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if n.EndAt != nil {
		endAt := n.EndAt.UTC().Format(time.RFC3339)
		resp.EndAt = &endAt
	}
	return resp
}

func toNoticePageResponse(page *notice.Page) noticePageResponse {
	notices := make([]noticeResponse, 0, len(page.Notices))
	for i := range page.Notices {
		notices = append(notices, toNoticeResponse(&page.Notices[i]))
	}
	return noticePageResponse{
		Notices:    notices,
		Page:       page.Page,
		Size:       page.Size,
		TotalCount: page.TotalCount,
		IsLast:     page.IsLast,
	}
}

// List は公開中のお知らせ一覧を返す。
// GET /api/notices?page=1&size=10
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	result, err := h.service.PublicList(r.Context(), page, size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoticePageResponse(result))
}

// Get は公開中のお知らせを1件返す。
// GET /api/notices/{noticeID}
func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "noticeID")

	n, err := h.service.PublicGet(r.Context(), noticeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordNoticeView(n.ID)
	writeJSON(w, http.StatusOK, toNoticeResponse(n))
}

// Banners は公開中のバナーお知らせを全件返す。
// GET /api/notices/banners
func (h *NoticeHandler) Banners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.service.Banners(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	notices := make([]noticeResponse, 0, len(banners))
	for i := range banners {
		notices = append(notices, toNoticeResponse(&banners[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": notices})
}
