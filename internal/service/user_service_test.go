package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"user-manager/internal/domain"
)

type fakeUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) Init(ctx context.Context) error { return nil }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return 0, fmt.Errorf("user already exists")
		}
	}
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users[user.ID] = &copied
	return user.ID, nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for id := int64(1); id <= r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	existing, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	for id, other := range r.users {
		if id != user.ID && other.Username == user.Username {
			return fmt.Errorf("user already exists")
		}
	}
	copied := *user
	copied.CreationDate = existing.CreationDate
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error {
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Status = status
	return nil
}

const testSecret = "test-secret"

func newTestService(repo *fakeUserRepo) UserService {
	return NewUserService(repo, testSecret, 0)
}

func registeredUser(t *testing.T, svc UserService, name, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:         name,
		Username:     username,
		CreationDate: time.Now().UTC(),
	}
	created, err := svc.CreateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return created
}

func TestCreateUserAssignsTokenAndStatus(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	created := registeredUser(t, svc, "Test User", "testUsername")

	if created.ID == 0 {
		t.Error("id not assigned")
	}
	if created.Status != domain.UserStatusOnline {
		t.Errorf("status = %q, want ONLINE", created.Status)
	}
	if created.Token == "" {
		t.Fatal("token not assigned")
	}

	parsed, err := jwt.Parse(created.Token, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		t.Fatalf("token subject: %v", err)
	}
	if sub != "testUsername" {
		t.Errorf("token subject = %q, want testUsername", sub)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	registeredUser(t, svc, "Test User", "testUsername")

	_, err := svc.CreateUser(context.Background(), &domain.User{
		Name:         "Other User",
		Username:     "testUsername",
		CreationDate: time.Now().UTC(),
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
	if len(repo.users) != 1 {
		t.Errorf("user count = %d, want 1", len(repo.users))
	}
}

func TestCheckLoginCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	registeredUser(t, svc, "1234", "Michael")

	user, err := svc.CheckLoginCredentials(context.Background(), "Michael", "1234")
	if err != nil {
		t.Fatalf("check credentials: %v", err)
	}
	if user.Username != "Michael" {
		t.Errorf("username = %q, want Michael", user.Username)
	}

	if _, err := svc.CheckLoginCredentials(context.Background(), "Michael", "WrongPassword"); !errors.Is(err, ErrWrongCredentials) {
		t.Errorf("err = %v, want ErrWrongCredentials", err)
	}

	if _, err := svc.CheckLoginCredentials(context.Background(), "NonExistentUser", "1234"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	created := registeredUser(t, svc, "1234", "Michael")

	if err := svc.UpdateStatus(context.Background(), created, domain.UserStatusOffline); err != nil {
		t.Fatalf("logout transition: %v", err)
	}
	if created.Status != domain.UserStatusOffline {
		t.Errorf("status = %q, want OFFLINE", created.Status)
	}

	stored, err := svc.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.Status != domain.UserStatusOffline {
		t.Errorf("stored status = %q, want OFFLINE", stored.Status)
	}

	if err := svc.UpdateStatus(context.Background(), created, domain.UserStatusOnline); err != nil {
		t.Fatalf("login transition: %v", err)
	}
	if created.Status != domain.UserStatusOnline {
		t.Errorf("status = %q, want ONLINE", created.Status)
	}
}

func TestUpdateStatusUnknownUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	err := svc.UpdateStatus(context.Background(), &domain.User{ID: 42}, domain.UserStatusOffline)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	if _, err := svc.GetUserByID(context.Background(), 42); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	created := registeredUser(t, svc, "Test User", "testUsername")

	birth := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	created.Username = "newUsername"
	created.BirthDate = &birth

	updated, err := svc.UpdateUser(context.Background(), created)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Username != "newUsername" {
		t.Errorf("username = %q, want newUsername", updated.Username)
	}

	stored, err := svc.GetUserByUsername(context.Background(), "newUsername")
	if err != nil {
		t.Fatalf("get updated user: %v", err)
	}
	if stored.BirthDate == nil || !stored.BirthDate.Equal(birth) {
		t.Errorf("birthDate = %v, want %v", stored.BirthDate, birth)
	}
}

func TestUpdateUserConflictsAndMisses(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	first := registeredUser(t, svc, "First", "first")
	registeredUser(t, svc, "Second", "second")

	first.Username = "second"
	if _, err := svc.UpdateUser(context.Background(), first); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}

	ghost := &domain.User{ID: 42, Username: "ghost"}
	if _, err := svc.UpdateUser(context.Background(), ghost); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestListUsersReturnsAll(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	registeredUser(t, svc, "First", "first")
	registeredUser(t, svc, "Second", "second")

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].Username != "first" || users[1].Username != "second" {
		t.Errorf("usernames = %q, %q, want first, second", users[0].Username, users[1].Username)
	}
}
