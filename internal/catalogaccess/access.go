package catalogaccess

import (
	"context"
	"fmt"
	"strings"

	"tome/internal/api"
	"tome/internal/catalog"
	"tome/internal/ipc"
)

// Access provides catalog operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.Document, error)
	Describe(ctx context.Context, id int64) (*api.Document, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Alerts(ctx context.Context, status string, limit int) ([]api.Alert, error)
	Search(ctx context.Context, terms []string, limit int) ([]api.SearchHit, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access. The stage order
// controls how Describe lays out per-stage rows.
func NewStoreAccess(store *catalog.Store, stageOrder []string) Access {
	return &storeAccess{store: store, service: api.NewDocumentService(store, stageOrder)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.DaemonStatus()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.Document, error) {
	resp, err := a.client.List(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (a *ipcAccess) Describe(_ context.Context, id int64) (*api.Document, error) {
	resp, err := a.client.Describe(id)
	if err != nil {
		return nil, err
	}
	doc := resp.Document
	return &doc, nil
}

func (a *ipcAccess) ClearAll(_ context.Context) (int64, error) {
	resp, err := a.client.Clear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearCompleted(_ context.Context) (int64, error) {
	resp, err := a.client.ClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearFailed(_ context.Context) (int64, error) {
	resp, err := a.client.ClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.Remove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) RetryAll(_ context.Context) (int64, error) {
	resp, err := a.client.Retry(nil)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.Retry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Alerts(_ context.Context, status string, limit int) ([]api.Alert, error) {
	resp, err := a.client.Alerts(status, limit)
	if err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

func (a *ipcAccess) Search(_ context.Context, terms []string, limit int) ([]api.SearchHit, error) {
	resp, err := a.client.Search(terms, limit)
	if err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

type storeAccess struct {
	store   *catalog.Store
	service *api.DocumentService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Document, error) {
	var filters []catalog.Status
	for _, s := range statuses {
		if parsed, ok := catalog.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.Document, error) {
	doc, err := a.service.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %d not found", id)
	}
	return doc, nil
}

func (a *storeAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *storeAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *storeAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *storeAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *storeAccess) Alerts(ctx context.Context, status string, limit int) ([]api.Alert, error) {
	alertStatus := catalog.AlertStatus(strings.TrimSpace(status))
	switch alertStatus {
	case "", catalog.AlertPending, catalog.AlertSent, catalog.AlertFailed:
	default:
		return nil, fmt.Errorf("unknown alert status %q", status)
	}
	alerts, err := a.store.ListAlerts(ctx, alertStatus, limit)
	if err != nil {
		return nil, err
	}
	return api.FromAlerts(alerts), nil
}

func (a *storeAccess) Search(ctx context.Context, terms []string, limit int) ([]api.SearchHit, error) {
	hits, err := a.store.Search(ctx, terms, limit)
	if err != nil {
		return nil, err
	}
	return api.FromSearchHits(hits), nil
}
