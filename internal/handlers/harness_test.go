package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/swiftcart/apiserver/internal/handlers"
	"github.com/swiftcart/apiserver/internal/services"
	"github.com/swiftcart/apiserver/internal/store"
	"github.com/swiftcart/apiserver/types"
)

const testSecret = "handler-test-secret"

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

type fakeOrderRepo struct {
	nextID int
	orders map[int]types.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{nextID: 1, orders: map[int]types.Order{}}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order types.Order) (types.Order, error) {
	order.ID = r.nextID
	r.nextID++
	r.orders[order.ID] = order
	return order, nil
}

func (r *fakeOrderRepo) List(ctx context.Context) ([]types.Order, error) {
	orders := make([]types.Order, 0, len(r.orders))
	for id := 1; id < r.nextID; id++ {
		if order, ok := r.orders[id]; ok {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (r *fakeOrderRepo) ListByOwner(ctx context.Context, userID int) ([]types.Order, error) {
	orders := make([]types.Order, 0)
	for id := 1; id < r.nextID; id++ {
		if order, ok := r.orders[id]; ok && order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int) (types.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) GetByIDForOwner(ctx context.Context, id, userID int) (types.Order, error) {
	order, ok := r.orders[id]
	if !ok || order.UserID != userID {
		return types.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) UpdateDetails(ctx context.Context, id, quantity int, size types.OrderSize) (types.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	order.Quantity = quantity
	order.Size = size
	r.orders[id] = order
	return order, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id int, status types.OrderStatus) (types.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	if !order.Status.CanTransitionTo(status) {
		return types.Order{}, store.ErrInvalidTransition
	}
	order.Status = status
	r.orders[id] = order
	return order, nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

type testEnv struct {
	router *chi.Mux
	users  *fakeUserRepo
	orders *fakeOrderRepo
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	orders := newFakeOrderRepo()

	userService := services.NewUserService(users)
	orderService := services.NewOrderService(orders, nil, nil)

	authMiddleware := handlers.RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Get("/", handlers.Hello)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, testSecret)
	})
	router.Route("/orders", func(r chi.Router) {
		handlers.OrderRouter(r, orderService, userService, nil, authMiddleware)
	})

	return &testEnv{router: router, users: users, orders: orders}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func (e *testEnv) jsonRequest(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func (e *testEnv) signup(t *testing.T, username, email, password string, staff bool) types.User {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q,"is_staff":%v,"is_active":true}`,
		username, email, password, staff)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := e.do(req)
	require.Equal(t, http.StatusCreated, recorder.Code, "signup failed: %s", recorder.Body.String())

	var user types.User
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &user))
	return user
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	recorder := e.do(req)
	require.Equal(t, http.StatusOK, recorder.Code, "login failed: %s", recorder.Body.String())

	var resp handlers.TokenResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}
