package services

import (
	"context"
	"strings"

	"financeiro/internal/core"
	"financeiro/internal/storage"
)

type SupplierService struct {
	storage *storage.SQLiteRepository
}

func NewSupplierService(storage *storage.SQLiteRepository) *SupplierService {
	return &SupplierService{storage: storage}
}

func (s *SupplierService) Create(ctx context.Context, sup core.Supplier) (core.Supplier, error) {
	sup.Name = strings.TrimSpace(sup.Name)
	if err := sup.Validate(); err != nil {
		return core.Supplier{}, err
	}
	return s.storage.CreateSupplier(ctx, sup)
}

func (s *SupplierService) Get(ctx context.Context, id int64) (core.Supplier, error) {
	return s.storage.GetSupplier(ctx, id)
}

func (s *SupplierService) List(ctx context.Context) ([]core.Supplier, error) {
	return s.storage.ListSuppliers(ctx)
}
