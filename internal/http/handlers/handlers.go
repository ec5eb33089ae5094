package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/config"
	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/metrics"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/service"
)

const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc     *service.Service
	authn   *auth.Authenticator
	cookie  cookieSpec
	metrics *metrics.Metrics
}

// New собирает обработчики. cfg нужен для параметров refresh-cookie.
func New(svc *service.Service, authn *auth.Authenticator, cfg *config.Config, m *metrics.Metrics) *Handlers {
	return &Handlers{
		svc:   svc,
		authn: authn,
		cookie: cookieSpec{
			name:     cfg.Cookie.Name,
			path:     cfg.Cookie.Path,
			sameSite: parseSameSite(cfg.Cookie.SameSite),
			secure:   cfg.SecureCookie(),
			maxAge:   svc.Issuer().RefreshTTL(),
		},
		metrics: m,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", apierrors.ErrBadRequest)
	}

	return nil
}

// identity — личность, положенная мидлваром Authenticate.
// Маршрут без мидлвара — ошибка сборки роутера, отвечаем 401.
func identity(r *http.Request) (*auth.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return id, nil
}

// listParams разбирает page/limit/search/sortBy/sortOrder.
// Нечисловые page/limit — ошибка валидации, границы правит сервис.
func listParams(r *http.Request) (models.ListParams, error) {
	q := r.URL.Query()

	p := models.ListParams{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: models.SortOrder(strings.ToLower(q.Get("sortOrder"))),
		OwnerID:   q.Get("ownerId"),
		Type:      models.ImageType(q.Get("type")),
	}

	var err error
	if p.Page, err = intParam(q.Get("page")); err != nil {
		return p, service.Invalid("page", "Must be a positive integer")
	}
	if p.Limit, err = intParam(q.Get("limit")); err != nil {
		return p, service.Invalid("limit", "Must be a positive integer")
	}

	return p, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// pagination — блок пагинации в ответе списка.
type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func newPagination(p models.ListParams, total int64) pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}

	return pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

// cookieSpec — параметры refresh-cookie.
type cookieSpec struct {
	name     string
	path     string
	sameSite http.SameSite
	secure   bool
	maxAge   time.Duration
}

func parseSameSite(s string) http.SameSite {
	if strings.EqualFold(s, "lax") {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
}

// setRefreshCookie выставляет HttpOnly-cookie с refresh-токеном.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.name,
		Value:    token,
		Path:     h.cookie.path,
		MaxAge:   int(h.cookie.maxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.secure,
		SameSite: h.cookie.sameSite,
	})
}

// clearRefreshCookie удаляет cookie (Max-Age=0 в заголовке).
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.name,
		Value:    "",
		Path:     h.cookie.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.secure,
		SameSite: h.cookie.sameSite,
	})
}
