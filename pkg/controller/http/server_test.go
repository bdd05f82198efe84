package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	httpctrl "github.com/secmon-lab/idsync/pkg/controller/http"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/repository/memory"
	"github.com/secmon-lab/idsync/pkg/service/worker"
	"github.com/secmon-lab/idsync/pkg/usecase"
)

type emptyConnector struct{}

func (c *emptyConnector) Kind() types.ConnectorKind { return types.ConnectorLDAP }
func (c *emptyConnector) FetchGroups(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (c *emptyConnector) FetchUsers(ctx context.Context, groups []string) ([]model.RawUser, error) {
	return nil, nil
}

type emptyTarget struct{}

func (t *emptyTarget) Validate(ctx context.Context) error { return nil }
func (t *emptyTarget) ListGroups(ctx context.Context) (model.GroupTable, error) {
	return model.GroupTable{model.DefaultGroupName: "g-default"}, nil
}
func (t *emptyTarget) CreateGroup(ctx context.Context, name string) (types.GroupID, error) {
	return "g-x", nil
}
func (t *emptyTarget) ListUsers(ctx context.Context) ([]model.TargetUser, error) {
	return nil, nil
}
func (t *emptyTarget) GetUser(ctx context.Context, id types.TargetUserID) (*model.TargetUser, error) {
	return &model.TargetUser{ID: id}, nil
}
func (t *emptyTarget) CreateUser(ctx context.Context, payload *model.UserPayload) (types.TargetUserID, error) {
	return "u-x", nil
}
func (t *emptyTarget) UpdateUser(ctx context.Context, id types.TargetUserID, payload *model.UserPayload) error {
	return nil
}
func (t *emptyTarget) SetUserStatus(ctx context.Context, id types.TargetUserID, status types.UserStatus) error {
	return nil
}

func newTestServer() (*httpctrl.Server, *worker.SyncWorker) {
	uc := usecase.New(&emptyConnector{}, &emptyTarget{}, memory.New())
	w := worker.New(uc, time.Hour)
	return httpctrl.New(w), w
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer()

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, rec.Body.String()).Equal("OK")
}

func TestStatus(t *testing.T) {
	t.Run("idle before any run", func(t *testing.T) {
		server, _ := newTestServer()

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

		gt.Value(t, rec.Code).Equal(http.StatusOK)
		var resp struct {
			State string `json:"state"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Value(t, resp.State).Equal("idle")
	})
}

func TestTrigger(t *testing.T) {
	server, _ := newTestServer()

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	gt.Value(t, rec.Code).Equal(http.StatusAccepted)
	gt.String(t, rec.Body.String()).Contains(`"accepted"`)
}
