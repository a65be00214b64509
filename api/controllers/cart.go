package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/api/middleware"
	"github.com/ashu640/ecommerce-backend/api/responses"
	"github.com/ashu640/ecommerce-backend/api/validators"
	"github.com/ashu640/ecommerce-backend/internal/cart"
	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	pkgerrors "github.com/ashu640/ecommerce-backend/pkg/errors"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// CartGet returns the cart summary with derived totals.
func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartSummaryResponse(summary))
	}
}

// CartAdd puts one unit of a product into the cart.
func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addCartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		line, err := svc.Add(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartLineResponse(line))
	}
}

// CartAdjust bumps a line quantity up or down via ?action=inc|dec.
func CartAdjust(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		action := cart.AdjustAction(strings.TrimSpace(r.URL.Query().Get("action")))
		line, err := svc.Adjust(r.Context(), userID, lineID, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartLineResponse(line))
	}
}

// CartRemove deletes a line from the cart.
func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), userID, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type cartProductResponse struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	TitleBN    *string   `json:"title_bn,omitempty"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	Image      string    `json:"image,omitempty"`
}

type cartLineResponse struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	Product   *cartProductResponse `json:"product,omitempty"`
}

type cartSummaryResponse struct {
	Items         []cartLineResponse `json:"items"`
	TotalQuantity int                `json:"total_quantity"`
	SubtotalCents int64              `json:"subtotal_cents"`
}

func newCartLineResponse(line *models.CartItem) *cartLineResponse {
	if line == nil {
		return nil
	}
	resp := &cartLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
	}
	if line.Product != nil {
		resp.Product = &cartProductResponse{
			ID:         line.Product.ID,
			Title:      line.Product.Title,
			TitleBN:    line.Product.TitleBN,
			PriceCents: line.Product.PriceCents,
			Stock:      line.Product.Stock,
			Image:      line.Product.Images.First(),
		}
	}
	return resp
}

func newCartSummaryResponse(summary *cart.Summary) *cartSummaryResponse {
	if summary == nil {
		return nil
	}
	items := make([]cartLineResponse, 0, len(summary.Items))
	for i := range summary.Items {
		items = append(items, *newCartLineResponse(&summary.Items[i]))
	}
	return &cartSummaryResponse{
		Items:         items,
		TotalQuantity: summary.TotalQuantity,
		SubtotalCents: summary.SubtotalCents,
	}
}
