package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wedding-letter/letter-api/internal/model"
	"github.com/wedding-letter/letter-api/internal/notice"
)

// AdminNoticeHandler は管理者向けのお知らせHTTPハンドラー。
// 管理者チェックはミドルウェアで行われるため、ここでは行わない。
type AdminNoticeHandler struct {
	service NoticeServiceInterface
}

// NewAdminNoticeHandler はAdminNoticeHandlerを生成する。
func NewAdminNoticeHandler(service NoticeServiceInterface) *AdminNoticeHandler {
	return &AdminNoticeHandler{service: service}
}

// Search は条件付きのお知らせ検索を行う。すべての条件は省略可能。
// GET /admin/notices?keyword=&status=&isBanner=&page=&size=&sort=startAt,desc
func (h *AdminNoticeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := &model.NoticeSearchFilter{
		Keyword: strings.TrimSpace(query.Get("keyword")),
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status, ok := model.ParseNoticeStatus(statusStr)
		if !ok {
			handleServiceError(w, model.NewInvalidStatusError(statusStr))
			return
		}
		filter.Status = &status
	}

	if bannerStr := query.Get("isBanner"); bannerStr != "" {
		isBanner, err := strconv.ParseBool(bannerStr)
		if err != nil {
			handleServiceError(w, model.NewInvalidRequestError("isBannerはtrueまたはfalseで指定してください。"))
			return
		}
		filter.IsBanner = &isBanner
	}

	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.Size, _ = strconv.Atoi(query.Get("size"))
	filter.Sort = parseSortOrders(query["sort"])

	result, err := h.service.Search(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoticePageResponse(result))
}

// parseSortOrders は"field,desc"形式のソート指定をパースする。
// 方向の省略時は昇順。未知のフィールドの除外はリポジトリ層で行う。
func parseSortOrders(params []string) []model.NoticeSortOrder {
	var orders []model.NoticeSortOrder
	for _, param := range params {
		if param == "" {
			continue
		}
		parts := strings.SplitN(param, ",", 2)
		order := model.NoticeSortOrder{Field: strings.TrimSpace(parts[0])}
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc") {
			order.Desc = true
		}
		orders = append(orders, order)
	}
	return orders
}

// noticeWriteRequest はお知らせ作成・更新のリクエストボディ。
type noticeWriteRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Status   string  `json:"status"`
	IsBanner bool    `json:"isBanner"`
	StartAt  string  `json:"startAt"`
	EndAt    *string `json:"endAt"`
}

// parseTimes はリクエストのRFC3339日時文字列をパースする。
func (req *noticeWriteRequest) parseTimes() (time.Time, *time.Time, error) {
	var startAt time.Time
	if req.StartAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			return time.Time{}, nil, model.NewInvalidRequestError("掲載開始日時の形式が正しくありません。")
		}
		startAt = parsed
	}

	var endAt *time.Time
	if req.EndAt != nil && *req.EndAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.EndAt)
		if err != nil {
			return time.Time{}, nil, model.NewInvalidRequestError("掲載終了日時の形式が正しくありません。")
		}
		endAt = &parsed
	}

	return startAt, endAt, nil
}

// Create は新規お知らせを作成する。
// POST /admin/notices
func (h *AdminNoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req noticeWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}

	startAt, endAt, err := req.parseTimes()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	n, err := h.service.Create(r.Context(), &notice.CreateInput{
		Title:    req.Title,
		Content:  req.Content,
		Status:   req.Status,
		IsBanner: req.IsBanner,
		StartAt:  startAt,
		EndAt:    endAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNoticeResponse(n))
}

// Update は既存お知らせを上書き更新する。ステータスはUpdateStatusで変更する。
// PUT /admin/notices/{noticeID}
func (h *AdminNoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "noticeID")

	var req noticeWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}

	startAt, endAt, err := req.parseTimes()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	n, err := h.service.Update(r.Context(), noticeID, &notice.UpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		IsBanner: req.IsBanner,
		StartAt:  startAt,
		EndAt:    endAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoticeResponse(n))
}

// UpdateStatus はお知らせのステータスのみを変更する。
// PATCH /admin/notices/{noticeID}/status
func (h *AdminNoticeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "noticeID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("リクエストボディの形式が正しくありません。"))
		return
	}

	n, err := h.service.UpdateStatus(r.Context(), noticeID, req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoticeResponse(n))
}
