package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// batchShelfLife is the default expiry given to batches an order opens.
const batchShelfLife = 1 // years

type OrderService interface {
	Create(ctx context.Context, actor *Actor, req *CreateOrderRequest) (*model.Order, error)
	UpdateStatus(ctx context.Context, actor *Actor, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	UpdateDetail(ctx context.Context, actor *Actor, orderID, detailID uuid.UUID, req *UpdateDetailRequest) (*model.Order, error)
	Delete(ctx context.Context, actor *Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error)
}

type OrderLine struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"uuid_required"`
	BatchID      *uuid.UUID      `json:"batch_id"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	OrderedPrice decimal.Decimal `json:"ordered_price" validate:"decimal_gte0"`
}

type CreateOrderRequest struct {
	Note  string      `json:"note"`
	Lines []OrderLine `json:"lines" validate:"required,min=1,dive"`
}

// UpdateDetailRequest changes one order line. Nil fields stay as they are.
type UpdateDetailRequest struct {
	BatchID      *uuid.UUID       `json:"batch_id"`
	Quantity     *int             `json:"quantity" validate:"omitempty,gt=0"`
	OrderedPrice *decimal.Decimal `json:"ordered_price"`
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	batchRepo    repository.BatchRepository
	movementRepo repository.MovementRepository
	policy       repository.RestorePolicy
	db           *gorm.DB
	notifier     Notifier
}

func NewOrderService(oRepo repository.OrderRepository, pRepo repository.ProductRepository, bRepo repository.BatchRepository,
	mRepo repository.MovementRepository, policy repository.RestorePolicy, db *gorm.DB, notifier Notifier) OrderService {
	return &orderService{
		orderRepo:    oRepo,
		productRepo:  pRepo,
		batchRepo:    bRepo,
		movementRepo: mRepo,
		policy:       policy,
		db:           db,
		notifier:     notifierOrNop(notifier),
	}
}

func (s *orderService) Create(ctx context.Context, actor *Actor, req *CreateOrderRequest) (*model.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID: actor.ID,
		Status: model.OrderPending,
		Note:   req.Note,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, line := range req.Lines {
			product, err := s.productRepo.FindByID(tx, line.ProductID)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}

			price := line.OrderedPrice
			if price.IsZero() {
				price = product.Price
			}

			batch, err := s.resolveBatch(tx, product, line.BatchID, price)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}

			detail := model.OrderDetail{
				ProductID:    product.ID,
				BatchID:      batch.ID,
				Quantity:     line.Quantity,
				OrderedPrice: price,
			}
			detail.Recalculate()
			order.Details = append(order.Details, detail)
		}

		order.SumTotal()
		return s.orderRepo.Create(tx, order)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.orderRepo.FindByID(s.db.WithContext(ctx), order.ID)
	if err != nil {
		return nil, err
	}
	s.publish("order_created", created, actor, fmt.Sprintf("order %s placed (%d lines)", created.ID, len(created.Details)))
	return created, nil
}

// resolveBatch picks the batch an order line restocks: the requested one, an
// existing batch bought at the same price, or a fresh empty batch.
func (s *orderService) resolveBatch(tx *gorm.DB, product *model.Product, batchID *uuid.UUID, price decimal.Decimal) (*model.Batch, error) {
	if batchID != nil {
		batch, err := s.batchRepo.FindByID(tx, *batchID)
		if err != nil {
			return nil, err
		}
		if batch.ProductID != product.ID {
			return nil, apperr.Validation("batch %s does not belong to product %s", batch.BatchCode, product.Code)
		}
		return batch, nil
	}

	batches, err := s.batchRepo.FindByProduct(tx, product.ID)
	if err != nil {
		return nil, apperr.Persistence("list product batches", err)
	}
	for i := range batches {
		if batches[i].PurchasePrice.Equal(price) {
			return &batches[i], nil
		}
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	expiry := today.AddDate(batchShelfLife, 0, 0)
	batch := &model.Batch{
		BatchCode:     newBatchCode(product.Code, now),
		ProductID:     product.ID,
		PurchasePrice: price,
		ArrivalDate:   today,
		ExpiryDate:    &expiry,
	}
	if err := s.batchRepo.Create(tx, batch); err != nil {
		return nil, apperr.Persistence("create batch", err)
	}
	return batch, nil
}

func newBatchCode(productCode string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("B-%s-%s-%s", productCode, at.Format("20060102"), suffix)
}

func (s *orderService) UpdateStatus(ctx context.Context, actor *Actor, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown order status %q", status)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, order.Status, status)
		}
		if (status == model.OrderApproved || status == model.OrderReceived) && !actor.IsAdmin() {
			return fmt.Errorf("%w: only %s can mark an order %s", apperr.ErrForbidden, model.RoleAdmin, status)
		}

		switch status {
		case model.OrderReceived:
			if err := s.receive(tx, actor, order); err != nil {
				return err
			}
		case model.OrderCancelled:
			if err := s.releaseAll(tx, actor, order); err != nil {
				return err
			}
		}
		return s.orderRepo.UpdateStatus(tx, id, status)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	s.publish("order_"+string(status), updated, actor, fmt.Sprintf("order %s is now %s", id, status))
	return updated, nil
}

// receive turns the ordered quantities into sellable stock. Anything a line
// still withholds from an earlier edit is released first.
func (s *orderService) receive(tx *gorm.DB, actor *Actor, order *model.Order) error {
	if err := s.releaseAll(tx, actor, order); err != nil {
		return err
	}
	now := time.Now()
	movements := make([]model.StockMovement, 0, len(order.Details))
	for _, d := range order.Details {
		if err := s.batchRepo.Receive(tx, d.BatchID, d.Quantity, now); err != nil {
			return err
		}
		movements = append(movements, stockMovement(d.BatchID, d.ProductID, model.MovementIn, d.Quantity, order.ID, "order received", actor))
	}
	return s.movementRepo.Log(tx, movements...)
}

// releaseAll gives back whatever the order's lines still withhold.
func (s *orderService) releaseAll(tx *gorm.DB, actor *Actor, order *model.Order) error {
	for i := range order.Details {
		d := &order.Details[i]
		if d.DeductedQuantity == 0 {
			continue
		}
		if err := s.release(tx, actor, order.ID, d.BatchID, d.ProductID, d.DeductedQuantity); err != nil {
			return err
		}
		d.DeductedQuantity = 0
		if err := s.orderRepo.SaveDetail(tx, d); err != nil {
			return apperr.Persistence("save order detail", err)
		}
	}
	return nil
}

func (s *orderService) release(tx *gorm.DB, actor *Actor, orderID, batchID, productID uuid.UUID, qty int) error {
	counter, err := s.batchRepo.Restore(tx, batchID, qty, s.policy)
	if err != nil {
		return err
	}
	return s.movementRepo.Log(tx, stockMovement(batchID, productID, model.MovementRestore, qty, orderID, "restored to "+counter, actor))
}

func (s *orderService) UpdateDetail(ctx context.Context, actor *Actor, orderID, detailID uuid.UUID, req *UpdateDetailRequest) (*model.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.OrderedPrice != nil && req.OrderedPrice.IsNegative() {
		return nil, apperr.Validation("ordered_price cannot be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderPending {
			return apperr.Validation("order is %s; lines can only change while pending", order.Status)
		}

		var detail *model.OrderDetail
		for i := range order.Details {
			if order.Details[i].ID == detailID {
				detail = &order.Details[i]
				break
			}
		}
		if detail == nil {
			return apperr.NotFound("order detail", detailID)
		}

		newBatchID := detail.BatchID
		if req.BatchID != nil {
			batch, err := s.batchRepo.FindByID(tx, *req.BatchID)
			if err != nil {
				return err
			}
			if batch.ProductID != detail.ProductID {
				return apperr.Validation("batch %s belongs to another product", batch.BatchCode)
			}
			newBatchID = batch.ID
		}
		newQty := detail.Quantity
		if req.Quantity != nil {
			newQty = *req.Quantity
		}

		if newBatchID != detail.BatchID || newQty != detail.Quantity {
			if detail.DeductedQuantity > 0 {
				if err := s.release(tx, actor, order.ID, detail.BatchID, detail.ProductID, detail.DeductedQuantity); err != nil {
					return err
				}
			}
			if _, err := s.batchRepo.FindForUpdate(tx, newBatchID); err != nil {
				return err
			}
			if err := s.batchRepo.Deduct(tx, newBatchID, newQty); err != nil {
				return err
			}
			err := s.movementRepo.Log(tx, stockMovement(newBatchID, detail.ProductID, model.MovementOut, newQty, order.ID, "order line updated", actor))
			if err != nil {
				return err
			}
			detail.BatchID = newBatchID
			detail.Quantity = newQty
			detail.DeductedQuantity = newQty
		}
		if req.OrderedPrice != nil {
			detail.OrderedPrice = *req.OrderedPrice
		}

		detail.Recalculate()
		if err := s.orderRepo.SaveDetail(tx, detail); err != nil {
			return apperr.Persistence("save order detail", err)
		}
		order.SumTotal()
		return s.orderRepo.UpdateTotal(tx, order.ID, order.TotalAmount)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.FindByID(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	s.publish("order_detail_updated", updated, actor, fmt.Sprintf("order %s line %s updated", orderID, detailID))
	return updated, nil
}

func (s *orderService) Delete(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if err := requireAdmin(actor, "delete orders"); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		if order.Status != model.OrderCancelled {
			if err := s.releaseAll(tx, actor, order); err != nil {
				return err
			}
		}
		if err := s.orderRepo.Delete(tx, id); err != nil {
			return apperr.Persistence("delete order", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish("order_deleted", map[string]interface{}{"id": id}, actor, fmt.Sprintf("order %s deleted", id))
	return nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.orderRepo.FindByID(s.db.WithContext(ctx), id)
}

func (s *orderService) List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("unknown order status %q", filter.Status)
	}
	orders, err := s.orderRepo.FindAll(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, apperr.Persistence("list orders", err)
	}
	return orders, nil
}

func (s *orderService) publish(action string, data any, actor *Actor, message string) {
	s.notifier.Publish(Event{Type: "order_update", Action: action, Data: data, UserID: actor.ID, Message: message})
}

func stockMovement(batchID, productID uuid.UUID, kind model.MovementType, qty int, ref uuid.UUID, note string, actor *Actor) model.StockMovement {
	m := model.StockMovement{
		BatchID:   batchID,
		ProductID: productID,
		Type:      kind,
		Quantity:  qty,
		Reference: ref.String(),
		Note:      note,
	}
	if actor != nil {
		id := actor.ID
		m.CreatedByUserID = &id
	}
	return m
}
