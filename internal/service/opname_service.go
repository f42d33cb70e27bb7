package service

import (
	"context"
	"fmt"

	"siops/internal/model"
	"siops/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OpnameService interface {
	Reconcile(ctx context.Context, actor *Actor, req *OpnameRequest) (*model.StockOpname, error)
	GetAll(batchID *uuid.UUID) ([]model.StockOpname, error)
}

type OpnameRequest struct {
	BatchID    uuid.UUID `json:"batch_id" validate:"uuid_required"`
	CountedQty int       `json:"counted_qty" validate:"gte=0"`
	Note       string    `json:"note"`
}

type opnameService struct {
	opnameRepo   repository.OpnameRepository
	batchRepo    repository.BatchRepository
	movementRepo repository.MovementRepository
	db           *gorm.DB
	notifier     Notifier
}

func NewOpnameService(oRepo repository.OpnameRepository, bRepo repository.BatchRepository, mRepo repository.MovementRepository,
	db *gorm.DB, notifier Notifier) OpnameService {
	return &opnameService{
		opnameRepo:   oRepo,
		batchRepo:    bRepo,
		movementRepo: mRepo,
		db:           db,
		notifier:     notifierOrNop(notifier),
	}
}

// Reconcile replaces a batch's system stock with a physical count. The whole
// count lands in stock_quantity so it is sellable afterwards.
func (s *opnameService) Reconcile(ctx context.Context, actor *Actor, req *OpnameRequest) (*model.StockOpname, error) {
	if err := requireAdmin(actor, "record stock opname"); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var opname *model.StockOpname
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.batchRepo.FindForUpdate(tx, req.BatchID)
		if err != nil {
			return err
		}

		system := batch.OnHand()
		opname = &model.StockOpname{
			BatchID:    batch.ID,
			SystemQty:  system,
			CountedQty: req.CountedQty,
			Difference: req.CountedQty - system,
			Note:       req.Note,
			UserID:     actor.ID,
		}
		if err := s.batchRepo.SetCounted(tx, batch.ID, req.CountedQty); err != nil {
			return err
		}
		if err := s.opnameRepo.Create(tx, opname); err != nil {
			return err
		}
		return s.movementRepo.Log(tx, stockMovement(batch.ID, batch.ProductID, model.MovementAdjust, opname.Difference, opname.ID, req.Note, actor))
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(Event{
		Type:    "stock_update",
		Action:  "opname_recorded",
		Data:    opname,
		UserID:  actor.ID,
		Message: fmt.Sprintf("batch %s counted at %d (difference %+d)", opname.BatchID, opname.CountedQty, opname.Difference),
	})
	return opname, nil
}

func (s *opnameService) GetAll(batchID *uuid.UUID) ([]model.StockOpname, error) {
	return s.opnameRepo.FindAll(batchID)
}
