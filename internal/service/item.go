package service

import (
	"context"
	"fmt"
	"strings"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

type itemService struct {
	tx       repository.Transactor
	itemRepo repository.ItemRepository
	recorder *recorder
	clock    clock.Clock
}

func NewItemService(
	tx repository.Transactor,
	itemRepo repository.ItemRepository,
	eventRepo repository.EventRepository,
	clk clock.Clock,
) ItemService {
	return &itemService{
		tx:       tx,
		itemRepo: itemRepo,
		recorder: &recorder{events: eventRepo, clock: clk},
		clock:    clk,
	}
}

func (s *itemService) CreateItem(ctx context.Context, in CreateItemInput) (*domain.Item, error) {
	logger.EnterMethod("itemService.CreateItem", "name", in.Name, "totalStock", in.TotalStock)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, exitWithError("itemService.CreateItem", invalidInput("item name is required"))
	}
	if in.TotalStock < 0 {
		return nil, exitWithError("itemService.CreateItem", invalidInput("total stock must not be negative"))
	}

	now := s.clock.Now()
	item := &domain.Item{
		ID:             newID(),
		Name:           name,
		Description:    in.Description,
		Category:       in.Category,
		Icon:           in.Icon,
		TotalStock:     in.TotalStock,
		AvailableStock: in.TotalStock,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.itemRepo.Create(ctx, item); err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ:     domain.EventItemCreated,
			payload: domain.ItemCreatedPayload{ItemID: item.ID, Name: item.Name, Source: domain.ItemSourceCustom},
		})
	})
	if err != nil {
		return nil, exitWithError("itemService.CreateItem", err, "name", name)
	}

	logger.ExitMethod("itemService.CreateItem", "itemID", item.ID)
	return item, nil
}

func (s *itemService) SetTotalStock(ctx context.Context, itemID string, newTotal int32) (*domain.Item, error) {
	logger.EnterMethod("itemService.SetTotalStock", "itemID", itemID, "newTotal", newTotal)

	if newTotal < 0 {
		return nil, exitWithError("itemService.SetTotalStock", invalidInput("total stock must not be negative"))
	}

	var updated *domain.Item
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		item, err := s.itemRepo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		delta := newTotal - item.TotalStock
		newAvailable := item.AvailableStock + delta
		if newAvailable < 0 {
			return fmt.Errorf("%w: %d units are on loan, total cannot drop to %d", domain.ErrInvalidState, item.OnLoan(), newTotal)
		}

		updated, err = s.itemRepo.UpdateStock(ctx, itemID, newTotal, newAvailable)
		if err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ: domain.EventStockUpdated,
			payload: domain.StockUpdatedPayload{
				ItemID:            itemID,
				PreviousTotal:     item.TotalStock,
				NewTotal:          updated.TotalStock,
				PreviousAvailable: item.AvailableStock,
				NewAvailable:      updated.AvailableStock,
			},
		})
	})
	if err != nil {
		return nil, exitWithError("itemService.SetTotalStock", err, "itemID", itemID)
	}

	logger.ExitMethod("itemService.SetTotalStock", "itemID", itemID, "available", updated.AvailableStock)
	return updated, nil
}

func (s *itemService) Reserve(ctx context.Context, itemID string, qty int32) (*domain.Item, error) {
	logger.EnterMethod("itemService.Reserve", "itemID", itemID, "qty", qty)

	if qty <= 0 {
		return nil, exitWithError("itemService.Reserve", invalidInput("quantity must be positive"))
	}

	var item *domain.Item
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if item, err = s.itemRepo.Reserve(ctx, itemID, qty); err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ:     domain.EventStockReserved,
			payload: domain.StockMovementPayload{ItemID: itemID, Quantity: qty},
		})
	})
	if err != nil {
		return nil, exitWithError("itemService.Reserve", err, "itemID", itemID)
	}

	logger.ExitMethod("itemService.Reserve", "itemID", itemID, "available", item.AvailableStock)
	return item, nil
}

func (s *itemService) Release(ctx context.Context, itemID string, qty int32) (*domain.Item, error) {
	logger.EnterMethod("itemService.Release", "itemID", itemID, "qty", qty)

	if qty <= 0 {
		return nil, exitWithError("itemService.Release", invalidInput("quantity must be positive"))
	}

	var item *domain.Item
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if item, err = s.itemRepo.Release(ctx, itemID, qty); err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ:     domain.EventStockReleased,
			payload: domain.StockMovementPayload{ItemID: itemID, Quantity: qty},
		})
	})
	if err != nil {
		return nil, exitWithError("itemService.Release", err, "itemID", itemID)
	}

	logger.ExitMethod("itemService.Release", "itemID", itemID, "available", item.AvailableStock)
	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

func (s *itemService) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.itemRepo.List(ctx)
}

func (s *itemService) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.itemRepo.List(ctx)
	}
	return s.itemRepo.Search(ctx, query)
}

// AddDefaultItems creates every catalog entry whose name is not taken yet,
// with zero stock.
func (s *itemService) AddDefaultItems(ctx context.Context) ([]domain.Item, error) {
	logger.EnterMethod("itemService.AddDefaultItems")

	created := []domain.Item{}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		created = created[:0]
		var drafts []draft
		now := s.clock.Now()
		for _, entry := range domain.DefaultCatalog {
			exists, err := s.itemRepo.ExistsByName(ctx, entry.Name)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			item := domain.Item{
				ID:          newID(),
				Name:        entry.Name,
				Description: entry.Description,
				Category:    entry.Category,
				Icon:        entry.Icon,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.itemRepo.Create(ctx, &item); err != nil {
				return err
			}
			created = append(created, item)
			drafts = append(drafts, draft{
				typ:     domain.EventItemCreated,
				payload: domain.ItemCreatedPayload{ItemID: item.ID, Name: item.Name, Source: domain.ItemSourceDefaultList},
			})
		}
		return s.recorder.record(ctx, drafts...)
	})
	if err != nil {
		return nil, exitWithError("itemService.AddDefaultItems", err)
	}

	logger.ExitMethod("itemService.AddDefaultItems", "created", len(created))
	return created, nil
}

func (s *itemService) DefaultCatalog() []domain.CatalogEntry {
	return append([]domain.CatalogEntry(nil), domain.DefaultCatalog...)
}
