package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"siops/internal/apperr"
	"siops/internal/importer"
	"siops/internal/model"
	"siops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesService interface {
	CreateSale(ctx context.Context, actor *Actor, date time.Time, lines []SaleLine) (*model.Sale, error)
	ImportSales(ctx context.Context, actor *Actor, parsed importer.Result) (*ImportReport, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, from, to *time.Time) ([]model.Sale, error)
}

// SaleLine is one product line of a sale. Row is the 1-based line or CSV
// row number used in error messages.
type SaleLine struct {
	Row         int              `json:"-"`
	ProductCode string           `json:"product_code" validate:"required"`
	Quantity    int              `json:"quantity"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

type CreateSaleRequest struct {
	SalesDate string     `json:"sales_date"` // YYYY-MM-DD, defaults to today
	Lines     []SaleLine `json:"lines" validate:"required,min=1,dive"`
}

// ImportReport is the outcome of a bulk import: the sales recorded per date
// and every row or group that was rejected.
type ImportReport struct {
	Sales  []ImportedSale `json:"sales"`
	Errors []ImportError  `json:"errors"`
}

type ImportedSale struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	SalesDate   string          `json:"sales_date"`
	Rows        int             `json:"rows"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type ImportError struct {
	Row        int                `json:"row,omitempty"`
	SalesDate  string             `json:"sales_date,omitempty"`
	Message    string             `json:"message"`
	Shortfalls []apperr.Shortfall `json:"shortfalls,omitempty"`
}

type salesService struct {
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	batchRepo    repository.BatchRepository
	movementRepo repository.MovementRepository
	allocator    Allocator
	db           *gorm.DB
	notifier     Notifier
}

func NewSalesService(sRepo repository.SaleRepository, pRepo repository.ProductRepository, bRepo repository.BatchRepository,
	mRepo repository.MovementRepository, allocator Allocator, db *gorm.DB, notifier Notifier) SalesService {
	return &salesService{
		saleRepo:     sRepo,
		productRepo:  pRepo,
		batchRepo:    bRepo,
		movementRepo: mRepo,
		allocator:    allocator,
		db:           db,
		notifier:     notifierOrNop(notifier),
	}
}

var scientific = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[eE][+-]?[0-9]+$`)

// NormalizeProductCode undoes what spreadsheets do to numeric codes: marker
// characters that force text ('123, ="123") and scientific notation
// (8.99E+12).
func NormalizeProductCode(raw string) string {
	code := strings.TrimSpace(raw)
	code = strings.TrimLeft(code, "'`=\" \t")
	code = strings.TrimRight(code, "'`\" \t")
	if scientific.MatchString(code) {
		if d, err := decimal.NewFromString(code); err == nil {
			code = d.String()
		}
	}
	return code
}

func (s *salesService) CreateSale(ctx context.Context, actor *Actor, date time.Time, lines []SaleLine) (*model.Sale, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].Row == 0 {
			lines[i].Row = i + 1
		}
	}

	var sale *model.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sale, err = s.record(tx, actor, date, lines)
		return err
	})
	if err != nil {
		return nil, err
	}

	created, err := s.saleRepo.FindByID(s.db.WithContext(ctx), sale.ID)
	if err != nil {
		return nil, err
	}
	s.publish("sale_created", created, actor, fmt.Sprintf("sale of %s recorded (%s)", created.SalesDate.Format(importer.DateLayout), created.TotalAmount))
	return created, nil
}

type resolvedLine struct {
	SaleLine
	product *model.Product
}

// record validates, pre-checks and allocates one sale on tx. Any error leaves
// tx to be rolled back by the caller.
func (s *salesService) record(tx *gorm.DB, actor *Actor, date time.Time, lines []SaleLine) (*model.Sale, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("a sale needs at least one line")
	}

	resolved := make([]resolvedLine, 0, len(lines))
	requested := map[uuid.UUID]int{}
	var order []*model.Product
	for _, l := range lines {
		l.ProductCode = NormalizeProductCode(l.ProductCode)
		if l.ProductCode == "" {
			return nil, apperr.Validation("row %d: product code is required", l.Row)
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validation("row %d: invalid quantity %d for product %s", l.Row, l.Quantity, l.ProductCode)
		}
		if l.Price != nil && l.Price.IsNegative() {
			return nil, apperr.Validation("row %d: price cannot be negative", l.Row)
		}

		product, err := s.productRepo.FindByCode(tx, l.ProductCode)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", l.Row, err)
		}
		if _, seen := requested[product.ID]; !seen {
			order = append(order, product)
		}
		requested[product.ID] += l.Quantity
		resolved = append(resolved, resolvedLine{SaleLine: l, product: product})
	}

	// Check every product before touching stock so a short sale reports all
	// of its shortfalls at once.
	var shortage apperr.ShortageError
	for _, p := range order {
		batches, err := s.batchRepo.FindAvailable(tx, p.ID)
		if err != nil {
			return nil, err
		}
		available := 0
		for _, b := range batches {
			available += b.StockQuantity
		}
		if want := requested[p.ID]; want > available {
			shortage.Shortfalls = append(shortage.Shortfalls, apperr.Short(p.Code, want, available).Shortfalls...)
		}
	}
	if len(shortage.Shortfalls) > 0 {
		return nil, &shortage
	}

	sale := &model.Sale{
		UserID:    actor.ID,
		SalesDate: date,
	}
	sale.ID = uuid.New()

	var movements []model.StockMovement
	for _, l := range resolved {
		price := l.product.Price
		if l.Price != nil {
			price = *l.Price
		}

		allocations, err := s.allocator.AllocateProduct(tx, l.product, l.Quantity)
		if err != nil {
			// Pre-validation passed, so this is a consistency failure.
			return nil, fmt.Errorf("row %d: %w", l.Row, err)
		}
		for _, a := range allocations {
			sale.Details = append(sale.Details, model.SalesDetail{
				ProductID:    l.product.ID,
				BatchID:      a.BatchID,
				Quantity:     a.Quantity,
				SellingPrice: price,
				Subtotal:     price.Mul(decimal.NewFromInt(int64(a.Quantity))),
			})
			movements = append(movements, stockMovement(a.BatchID, l.product.ID, model.MovementOut, a.Quantity, sale.ID, "sale", actor))
		}
	}

	sale.SumTotal()
	if err := s.saleRepo.Create(tx, sale); err != nil {
		return nil, apperr.Persistence("create sale", err)
	}
	if err := s.movementRepo.Log(tx, movements...); err != nil {
		return nil, apperr.Persistence("log sale movements", err)
	}
	return sale, nil
}

// ImportSales records one sale per date. Each date group commits or fails on
// its own savepoint; the import as a whole commits when at least one group
// succeeded.
func (s *salesService) ImportSales(ctx context.Context, actor *Actor, parsed importer.Result) (*ImportReport, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	report := &ImportReport{Sales: []ImportedSale{}, Errors: []ImportError{}}
	for _, re := range parsed.Errors {
		report.Errors = append(report.Errors, ImportError{Row: re.Row, Message: re.Message})
	}

	groups := importer.GroupByDate(parsed.Rows)
	if len(groups) == 0 {
		return report, apperr.Validation("no valid rows to import")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range groups {
			lines := make([]SaleLine, len(g.Rows))
			for i, r := range g.Rows {
				lines[i] = SaleLine{Row: r.Row, ProductCode: r.Product, Quantity: r.Quantity, Price: r.Price}
			}

			var sale *model.Sale
			err := tx.Transaction(func(gtx *gorm.DB) error {
				var err error
				sale, err = s.record(gtx, actor, g.Date, lines)
				return err
			})
			if err != nil {
				report.Errors = append(report.Errors, groupError(g, err))
				continue
			}
			report.Sales = append(report.Sales, ImportedSale{
				SaleID:      sale.ID,
				SalesDate:   g.Key(),
				Rows:        len(g.Rows),
				TotalAmount: sale.TotalAmount,
			})
		}

		if len(report.Sales) == 0 {
			return apperr.Validation("no sales group could be imported")
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	s.publish("sales_imported", report.Sales, actor, fmt.Sprintf("%d sales imported, %d errors", len(report.Sales), len(report.Errors)))
	return report, nil
}

func groupError(g importer.Group, err error) ImportError {
	ie := ImportError{SalesDate: g.Key(), Message: err.Error()}
	var shortage *apperr.ShortageError
	if errors.As(err, &shortage) {
		ie.Shortfalls = shortage.Shortfalls
	}
	return ie
}

func (s *salesService) Get(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	return s.saleRepo.FindByID(s.db.WithContext(ctx), id)
}

func (s *salesService) List(ctx context.Context, from, to *time.Time) ([]model.Sale, error) {
	sales, err := s.saleRepo.FindAll(s.db.WithContext(ctx), from, to)
	if err != nil {
		return nil, apperr.Persistence("list sales", err)
	}
	return sales, nil
}

func (s *salesService) publish(action string, data any, actor *Actor, message string) {
	s.notifier.Publish(Event{Type: "stock_update", Action: action, Data: data, UserID: actor.ID, Message: message})
}
