package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// Repository defines the persistence operations required by the tasks service.
type Repository interface {
	// GetProject loads the parent project a task operation is scoped to.
	GetProject(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error)
	// GetUser loads a prospective assignee.
	GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error)
	Create(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error)
	List(ctx context.Context, params persistence.ListTasksParams) (persistence.ListResult[persistence.TaskView], error)
	Get(ctx context.Context, id uuid.UUID) (persistence.TaskView, error)
	Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type storeRepository struct {
	client persistence.Client
}

// New constructs a repository backed by the shared store. Task writes touch
// a single row and need no transaction scope.
func New(store persistence.Store) Repository {
	if store == nil {
		panic("store is required")
	}
	return &storeRepository{client: store.Client()}
}

func (r *storeRepository) GetProject(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) {
	return r.client.GetProject(ctx, id)
}

func (r *storeRepository) GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.client.GetUser(ctx, id)
}

func (r *storeRepository) Create(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error) {
	return r.client.CreateTask(ctx, params)
}

func (r *storeRepository) List(ctx context.Context, params persistence.ListTasksParams) (persistence.ListResult[persistence.TaskView], error) {
	return r.client.ListTasks(ctx, params)
}

func (r *storeRepository) Get(ctx context.Context, id uuid.UUID) (persistence.TaskView, error) {
	return r.client.GetTask(ctx, id)
}

func (r *storeRepository) Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Task, error) {
	return r.client.UpdateTask(ctx, id, mask)
}

func (r *storeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.DeleteTask(ctx, id)
}
