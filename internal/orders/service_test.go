package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashu640/ecommerce-backend/internal/products"
	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	"github.com/ashu640/ecommerce-backend/pkg/enums"
	pkgerrors "github.com/ashu640/ecommerce-backend/pkg/errors"
)

type stubOrderRepo struct {
	order        *models.Order
	findErr      error
	updated      []enums.OrderStatus
	updateErr    error
	byUser       []models.Order
	all          []models.Order
	counts       map[enums.PaymentMethod]int64
	maxUpdatedAt *time.Time
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) FindByPaymentRef(_ context.Context, ref string) (*models.Order, error) {
	if s.order == nil || s.order.PaymentRef == nil || *s.order.PaymentRef != ref {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) ListByUser(_ context.Context, _ uuid.UUID) ([]models.Order, error) {
	return s.byUser, nil
}

func (s *stubOrderRepo) ListAll(_ context.Context) ([]models.Order, error) {
	return s.all, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status enums.OrderStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, status)
	return nil
}

func (s *stubOrderRepo) CountByMethod(_ context.Context) (map[enums.PaymentMethod]int64, error) {
	return s.counts, nil
}

func (s *stubOrderRepo) MaxUpdatedAt(_ context.Context) (*time.Time, error) {
	return s.maxUpdatedAt, nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubSoldCounter struct {
	counts []products.SoldCount
}

func (s *stubSoldCounter) ListSoldCounts(_ context.Context) ([]products.SoldCount, error) {
	return s.counts, nil
}

type stubCancelNotifier struct {
	cancelled []uuid.UUID
}

func (s *stubCancelNotifier) OrderCancelled(_ context.Context, order *models.Order) {
	s.cancelled = append(s.cancelled, order.ID)
}

func newOrderService(t *testing.T, repo Repository, notifier *stubCancelNotifier) Service {
	t.Helper()
	if notifier == nil {
		notifier = &stubCancelNotifier{}
	}
	service, err := NewService(repo, &stubTxRunner{}, &stubSoldCounter{}, notifier)
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestService_UpdateStatusRequiresAdmin(t *testing.T) {
	service := newOrderService(t, &stubOrderRepo{}, nil)
	_, err := service.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   uuid.New(),
		Target:    enums.OrderStatusShipped,
		ActorRole: enums.UserRoleUser,
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestService_UpdateStatusHappyPath(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, Status: enums.OrderStatusPending}}
	service := newOrderService(t, repo, nil)

	updated, err := service.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		Target:    enums.OrderStatusShipped,
		ActorRole: enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", updated.Status)
	}
	if len(repo.updated) != 1 || repo.updated[0] != enums.OrderStatusShipped {
		t.Fatalf("unexpected writes: %v", repo.updated)
	}
}

func TestService_UpdateStatusRejectsSameStatus(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, Status: enums.OrderStatusShipped}}
	service := newOrderService(t, repo, nil)

	_, err := service.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		Target:    enums.OrderStatusShipped,
		ActorRole: enums.UserRoleAdmin,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_UpdateStatusRejectsSkippedStep(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, Status: enums.OrderStatusPending}}
	service := newOrderService(t, repo, nil)

	_, err := service.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		Target:    enums.OrderStatusDelivered,
		ActorRole: enums.UserRoleAdmin,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_UpdateStatusCancelNotifies(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, Status: enums.OrderStatusPending}}
	notifier := &stubCancelNotifier{}
	service := newOrderService(t, repo, notifier)

	updated, err := service.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		Target:    enums.OrderStatusCancelled,
		ActorRole: enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("cancel via status: %v", err)
	}
	if updated.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if len(notifier.cancelled) != 1 {
		t.Fatalf("expected cancellation notice")
	}
}

func TestService_UpdateStatusCancelAfterShipmentRejected(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, Status: enums.OrderStatusDelivered}}
	service := newOrderService(t, repo, nil)

	_, err := service.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		Target:    enums.OrderStatusCancelled,
		ActorRole: enums.UserRoleAdmin,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_CancelByOwner(t *testing.T) {
	orderID := uuid.New()
	ownerID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, UserID: ownerID, Status: enums.OrderStatusPending}}
	notifier := &stubCancelNotifier{}
	service := newOrderService(t, repo, notifier)

	cancelled, err := service.Cancel(context.Background(), CancelInput{OrderID: orderID, ActorUserID: ownerID})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if len(notifier.cancelled) != 1 || notifier.cancelled[0] != orderID {
		t.Fatalf("expected cancellation notice for %s", orderID)
	}
}

func TestService_CancelByStrangerForbidden(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, UserID: uuid.New(), Status: enums.OrderStatusPending}}
	service := newOrderService(t, repo, nil)

	_, err := service.Cancel(context.Background(), CancelInput{OrderID: orderID, ActorUserID: uuid.New()})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestService_CancelTwiceConflicts(t *testing.T) {
	orderID := uuid.New()
	ownerID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, UserID: ownerID, Status: enums.OrderStatusCancelled}}
	service := newOrderService(t, repo, nil)

	_, err := service.Cancel(context.Background(), CancelInput{OrderID: orderID, ActorUserID: ownerID})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestService_CancelShippedRejected(t *testing.T) {
	orderID := uuid.New()
	ownerID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, UserID: ownerID, Status: enums.OrderStatusShipped}}
	service := newOrderService(t, repo, nil)

	_, err := service.Cancel(context.Background(), CancelInput{OrderID: orderID, ActorUserID: ownerID})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_GetEnforcesOwnership(t *testing.T) {
	orderID := uuid.New()
	ownerID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: orderID, UserID: ownerID}}
	service := newOrderService(t, repo, nil)

	if _, err := service.Get(context.Background(), orderID, ownerID, enums.UserRoleUser); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := service.Get(context.Background(), orderID, uuid.New(), enums.UserRoleAdmin); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	_, err := service.Get(context.Background(), orderID, uuid.New(), enums.UserRoleUser)
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestService_GetBySessionEnforcesOwnership(t *testing.T) {
	ref := "cs_test_9"
	ownerID := uuid.New()
	repo := &stubOrderRepo{order: &models.Order{ID: uuid.New(), UserID: ownerID, PaymentRef: &ref}}
	service := newOrderService(t, repo, nil)

	if _, err := service.GetBySession(context.Background(), ref, ownerID, enums.UserRoleUser); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	_, err := service.GetBySession(context.Background(), ref, uuid.New(), enums.UserRoleUser)
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = service.GetBySession(context.Background(), "cs_missing", ownerID, enums.UserRoleUser)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestService_StatsAggregatesCounts(t *testing.T) {
	repo := &stubOrderRepo{counts: map[enums.PaymentMethod]int64{
		enums.PaymentMethodCOD:    3,
		enums.PaymentMethodOnline: 2,
	}}
	sold := &stubSoldCounter{counts: []products.SoldCount{{Title: "mug", Sold: 5}}}
	service, err := NewService(repo, &stubTxRunner{}, sold, &stubCancelNotifier{})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	stats, err := service.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalOrders != 5 || stats.CODOrders != 3 || stats.OnlineOrders != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.ProductsSold) != 1 || stats.ProductsSold[0].Sold != 5 {
		t.Fatalf("unexpected sold counts: %+v", stats.ProductsSold)
	}
}

func TestService_LastUpdateNilWhenNoOrders(t *testing.T) {
	service := newOrderService(t, &stubOrderRepo{}, nil)
	last, err := service.LastUpdate(context.Background())
	if err != nil {
		t.Fatalf("last update: %v", err)
	}
	if last.UpdatedAt != nil {
		t.Fatalf("expected nil timestamp")
	}
}
