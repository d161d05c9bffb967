package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swiftcart/apiserver/internal/storage"
)

const exportKeyFormat = "20060102T150405Z"

// ExportResult describes a written order snapshot.
type ExportResult struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Count  int    `json:"count"`
}

// ExportService writes order snapshots to object storage.
type ExportService struct {
	orders  OrderRepository
	storage *storage.Storage
}

func NewExportService(orders OrderRepository, store *storage.Storage) *ExportService {
	return &ExportService{orders: orders, storage: store}
}

// Snapshot marshals all orders and uploads them as a timestamped JSON
// object.
func (s *ExportService) Snapshot(ctx context.Context) (ExportResult, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return ExportResult{}, err
	}

	data, err := json.Marshal(orders)
	if err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("exports/orders-%s.json", time.Now().UTC().Format(exportKeyFormat))
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		Bucket: s.storage.Bucket(),
		Key:    key,
		Count:  len(orders),
	}, nil
}
